package rag

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/atticus-legal/atticus/internal/llm"
)

// DefaultEmbedBatchSize bounds one provider call's payload.
const DefaultEmbedBatchSize = 100

// DefaultEmbeddingDimensions matches the provider's embedding output width.
const DefaultEmbeddingDimensions = 1536

// Embedder batch-embeds texts through the provider, falling back to
// deterministic synthetic vectors when a batch call fails so the index stays
// operable in degraded mode. Fallback vectors are weaker signal than real
// ones; callers get the fallback batch count and should log it.
type Embedder struct {
	provider   llm.Provider
	batchSize  int
	dimensions int
	logger     *log.Logger
}

// NewEmbedder builds an embedder, normalizing non-positive parameters.
func NewEmbedder(provider llm.Provider, batchSize, dimensions int, logger *log.Logger) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[EMBED] ", log.LstdFlags)
	}
	return &Embedder{provider: provider, batchSize: batchSize, dimensions: dimensions, logger: logger}
}

// EmbedBatch embeds texts in fixed-size batches, one provider call per batch,
// issued concurrently and reassembled in input order regardless of completion
// order. Returns the vectors and the number of batches that fell back.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, int) {
	if len(texts) == 0 {
		return nil, 0
	}
	vectors := make([][]float32, len(texts))

	var wg sync.WaitGroup
	var fallbacks atomic.Int32
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			batch := texts[start:end]
			resp, err := e.provider.Embed(ctx, batch)
			if err != nil || len(resp) != len(batch) {
				if err != nil {
					e.logger.Printf("warn: embedding batch [%d:%d] failed, using fallback vectors: %v", start, end, err)
				} else {
					e.logger.Printf("warn: embedding batch [%d:%d] returned %d vectors for %d inputs, using fallback", start, end, len(resp), len(batch))
				}
				fallbacks.Add(1)
				for i, text := range batch {
					vectors[start+i] = FallbackVector(text, e.dimensions)
				}
				return
			}
			copy(vectors[start:end], resp)
		}(start, end)
	}
	wg.Wait()
	return vectors, int(fallbacks.Load())
}

// EmbedQuery embeds a single query string under the same fallback rule.
// The boolean reports whether the fallback vector was used.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, bool) {
	resp, err := e.provider.Embed(ctx, []string{text})
	if err != nil || len(resp) != 1 {
		if err != nil {
			e.logger.Printf("warn: query embedding failed, using fallback vector: %v", err)
		}
		return FallbackVector(text, e.dimensions), true
	}
	return resp[0], false
}

// FallbackVector derives a deterministic synthetic embedding from the text's
// character codes folded into a fixed-width accumulator, L2-normalized so it
// compares consistently under cosine similarity.
func FallbackVector(text string, dimensions int) []float32 {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	vec := make([]float32, dimensions)
	for i, r := range text {
		vec[i%dimensions] += float32(r)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

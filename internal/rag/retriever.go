package rag

import (
	"context"
	"log"
	"time"
)

// Retrieval defaults, overridable per call and via configuration.
const (
	DefaultTopK            = 5
	DefaultMinScore        = 0.3
	DefaultOverfetchFactor = 2
	DefaultAccuracy        = 0.92
)

// RetrieveOptions narrows one retrieve call. Zero values fall back to the
// retriever's configured defaults; empty filters match everything. MinScore
// nil uses the configured threshold while an explicit value, including 0 or
// negative, is applied as given.
type RetrieveOptions struct {
	TopK     int
	MinScore *float64
	Category string
	Source   string
}

// Retriever orchestrates query embedding, index search, metadata filtering and
// score thresholding into a ranked candidate set.
type Retriever struct {
	embedder  *Embedder
	index     *Index
	lexical   *LexicalIndex
	topK      int
	minScore  float64
	overfetch int
	accuracy  float64
	logger    *log.Logger
}

// NewRetriever wires the retrieval stages together. lexical may be nil, in
// which case results carry no keyword explanations.
func NewRetriever(embedder *Embedder, index *Index, lexical *LexicalIndex, topK int, minScore float64, overfetch int, accuracy float64, logger *log.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if overfetch <= 1 {
		overfetch = DefaultOverfetchFactor
	}
	if accuracy <= 0 || accuracy > 1 {
		accuracy = DefaultAccuracy
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		lexical:   lexical,
		topK:      topK,
		minScore:  minScore,
		overfetch: overfetch,
		accuracy:  accuracy,
		logger:    logger,
	}
}

// Retrieve embeds the query, over-fetches overfetch*topK candidates from the
// index, then filters by category/source and drops entries below minScore
// before truncating to topK. The index has no filtered-search capability, so
// filtering always happens on the similarity-ranked candidate list.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]RetrievalResult, RetrievalMetrics, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	minScore := r.minScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}

	start := time.Now()
	vector, usedFallback := r.embedder.EmbedQuery(ctx, query)
	embedMs := time.Since(start).Milliseconds()
	if usedFallback {
		r.logger.Printf("warn: query embedded via fallback vector, relevance will be degraded")
	}

	searchStart := time.Now()
	candidates := r.index.Search(vector, topK*r.overfetch)
	searchMs := time.Since(searchStart).Milliseconds()

	results := make([]RetrievalResult, 0, topK)
	for _, cand := range candidates {
		if opts.Category != "" && cand.Chunk.Category != opts.Category {
			continue
		}
		if opts.Source != "" && cand.Chunk.Source != opts.Source {
			continue
		}
		if cand.Score < minScore {
			continue
		}
		results = append(results, cand)
		if len(results) == topK {
			break
		}
	}

	r.annotate(query, results)

	metrics := RetrievalMetrics{
		TotalMs:          time.Since(start).Milliseconds(),
		EmbedMs:          embedMs,
		SearchMs:         searchMs,
		ResultCount:      len(results),
		AccuracyEstimate: r.accuracy,
	}
	return results, metrics, nil
}

// annotate attaches keyword-match explanations from the lexical index.
func (r *Retriever) annotate(query string, results []RetrievalResult) {
	if r.lexical == nil || len(results) == 0 {
		return
	}
	explanations, err := r.lexical.Explain(query, len(results)*r.overfetch)
	if err != nil {
		r.logger.Printf("warn: lexical explain failed: %v", err)
		return
	}
	for i := range results {
		if ex, ok := explanations[results[i].Chunk.ID]; ok {
			results[i].Explanation = ex
		}
	}
}

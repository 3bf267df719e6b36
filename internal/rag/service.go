package rag

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atticus-legal/atticus/config"
	"github.com/atticus-legal/atticus/internal/llm"
)

// Service ties the ingestion and query pipelines together behind one facade.
//
// Ingestion for a single source is not safe to run concurrently: chunk
// identity is source plus running count, so callers must serialize ingestion
// calls for the same source. Independent sources and queries may run
// concurrently.
type Service struct {
	cfg       config.RAGConfig
	chunker   *Chunker
	embedder  *Embedder
	index     *Index
	lexical   *LexicalIndex
	retriever *Retriever
	generator *Generator
	logger    *log.Logger
}

// NewService builds the pipeline from configuration. Zero-valued settings
// fall back to package defaults.
func NewService(cfg config.RAGConfig, provider llm.Provider, logger *log.Logger) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("rag service requires an llm provider")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	if cfg.MinSegmentLength <= 0 {
		cfg.MinSegmentLength = DefaultMinSegmentLength
	}

	lexical, err := NewLexicalIndex()
	if err != nil {
		return nil, err
	}

	index := NewIndex()
	embedder := NewEmbedder(provider, cfg.EmbedBatchSize, cfg.EmbeddingDimensions, logger)
	retriever := NewRetriever(embedder, index, lexical, cfg.TopK, cfg.MinScore, cfg.OverfetchFactor, cfg.AccuracyEstimate, logger)
	generator := NewGenerator(provider, cfg.SimilarityWeight, cfg.CitationWeight, cfg.PreviewLength, logger)

	return &Service{
		cfg:       cfg,
		chunker:   NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap),
		embedder:  embedder,
		index:     index,
		lexical:   lexical,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}, nil
}

// Ingest segments, chunks, embeds and indexes one document.
func (s *Service) Ingest(ctx context.Context, text, source string) (IngestStats, error) {
	start := time.Now()

	segments := SplitClauses(text, s.cfg.MinSegmentLength)
	chunks := s.chunker.Chunk(segments, source)
	if len(chunks) == 0 {
		return IngestStats{ProcessingTimeMs: time.Since(start).Milliseconds()}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, fallbacks := s.embedder.EmbedBatch(ctx, texts)
	if len(vectors) != len(chunks) {
		return IngestStats{}, fmt.Errorf("%w: %d chunks, %d vectors", ErrIndexCorruption, len(chunks), len(vectors))
	}
	if fallbacks > 0 {
		s.logger.Printf("warn: %d embedding batch(es) for %s used fallback vectors", fallbacks, source)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	count, err := s.index.Upsert(chunks)
	if err != nil {
		return IngestStats{}, err
	}
	if err := s.lexical.Add(chunks); err != nil {
		s.logger.Printf("warn: lexical indexing failed for %s: %v", source, err)
	}

	s.logger.Printf("ingested %s: %d segments, %d chunks", source, len(segments), count)
	return IngestStats{
		ChunksIndexed:    count,
		FallbackBatches:  fallbacks,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Retrieve returns the ranked candidate set for a query.
func (s *Service) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]RetrievalResult, RetrievalMetrics, error) {
	return s.retriever.Retrieve(ctx, query, opts)
}

// Query retrieves context for the query and generates a grounded answer.
func (s *Service) Query(ctx context.Context, query string) (GroundedResponse, RetrievalMetrics, error) {
	return s.Answer(ctx, query, RetrieveOptions{})
}

// Answer is Query with explicit retrieval options.
func (s *Service) Answer(ctx context.Context, query string, opts RetrieveOptions) (GroundedResponse, RetrievalMetrics, error) {
	results, metrics, err := s.retriever.Retrieve(ctx, query, opts)
	if err != nil {
		return GroundedResponse{}, metrics, err
	}
	return s.generator.Generate(ctx, query, results), metrics, nil
}

// Finalize grounds externally accumulated answer text against the supplied
// context, extracting citations and confidence without a provider call.
func (s *Service) Finalize(answer string, results []RetrievalResult) GroundedResponse {
	return s.generator.Finalize(answer, results)
}

// IndexSize reports the number of chunks currently indexed.
func (s *Service) IndexSize() int {
	return s.index.Len()
}

// Close releases index resources.
func (s *Service) Close() error {
	return s.lexical.Close()
}

package rag

import (
	"errors"
	"fmt"
)

// ErrIndexCorruption indicates the chunk/vector bookkeeping diverged. This is
// fatal for the affected ingestion and must not be silently recovered.
var ErrIndexCorruption = errors.New("vector index corruption: chunk/vector count mismatch")

// Chunk is a bounded span of source text made independently retrievable.
// Chunks are immutable once indexed; re-ingestion creates new chunks.
type Chunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Page      int       `json:"page,omitempty"`
	Category  string    `json:"category"`
	Heading   string    `json:"heading"`
	StartChar int       `json:"start_char"`
	EndChar   int       `json:"end_char"`
	Embedding []float32 `json:"-"`
}

// ChunkID builds the composite chunk identity from source and sequence index.
func ChunkID(source string, seq int) string {
	return fmt.Sprintf("%s_%d", source, seq)
}

// RetrievalResult pairs a chunk with its similarity score. Ephemeral, built
// per query.
type RetrievalResult struct {
	Chunk       Chunk   `json:"chunk"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation,omitempty"`
}

// RetrievalMetrics reports latency and volume for one retrieve call.
// AccuracyEstimate is a configured default reflecting offline benchmark
// precision, not a per-query measurement.
type RetrievalMetrics struct {
	TotalMs          int64   `json:"total_ms"`
	EmbedMs          int64   `json:"embed_ms"`
	SearchMs         int64   `json:"search_ms"`
	ResultCount      int     `json:"result_count"`
	AccuracyEstimate float64 `json:"accuracy_estimate"`
}

// Citation references a chunk that the generated answer actually used.
type Citation struct {
	ChunkID string  `json:"chunk_id"`
	Preview string  `json:"preview"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// GroundedResponse is an answer constrained to the cited chunks.
type GroundedResponse struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
	Grounded   bool       `json:"grounded"`
}

// IngestStats summarises one ingestion call.
type IngestStats struct {
	ChunksIndexed    int   `json:"chunks_indexed"`
	FallbackBatches  int   `json:"fallback_batches,omitempty"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

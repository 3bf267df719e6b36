package rag

import (
	"math"
	"sort"
	"sync"
)

// Index is an unbounded in-memory vector index keyed by chunk identity. It is
// process-lifetime only; persistence is a collaborator concern. Safe for
// concurrent upserts and searches.
type Index struct {
	mu      sync.RWMutex
	entries []indexEntry
	byID    map[string]int
}

type indexEntry struct {
	chunk  Chunk
	vector []float32
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]int)}
}

// Upsert inserts chunks with their vectors, replacing any existing entry with
// the same identity in place so insertion order stays stable. Chunks without
// an embedding are rejected via ErrIndexCorruption.
func (ix *Index) Upsert(chunks []Chunk) (int, error) {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return 0, ErrIndexCorruption
		}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, c := range chunks {
		entry := indexEntry{chunk: c, vector: c.Embedding}
		if pos, ok := ix.byID[c.ID]; ok {
			ix.entries[pos] = entry
			continue
		}
		ix.byID[c.ID] = len(ix.entries)
		ix.entries = append(ix.entries, entry)
	}
	return len(chunks), nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns up to k entries with the highest cosine similarity to the
// query vector, descending by score, ties broken by insertion order.
func (ix *Index) Search(vector []float32, k int) []RetrievalResult {
	if k <= 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]RetrievalResult, 0, len(ix.entries))
	for _, e := range ix.entries {
		results = append(results, RetrievalResult{
			Chunk: e.chunk,
			Score: CosineSimilarity(vector, e.vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// CosineSimilarity computes standard cosine similarity. A zero-magnitude
// vector yields 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

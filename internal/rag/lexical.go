package rag

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve"
)

// LexicalIndex is an in-memory full-text companion to the vector index. It
// supplies keyword-match explanations for similarity-ranked candidates.
type LexicalIndex struct {
	idx bleve.Index
}

type lexicalDoc struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

// NewLexicalIndex creates a memory-only bleve index.
func NewLexicalIndex() (*LexicalIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return &LexicalIndex{idx: idx}, nil
}

// Add indexes chunks for keyword lookup.
func (l *LexicalIndex) Add(chunks []Chunk) error {
	batch := l.idx.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, lexicalDoc{Content: c.Content, Category: c.Category, Source: c.Source}); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}
	return l.idx.Batch(batch)
}

// Explain runs a keyword match for the query and returns a highlighted
// fragment per matching chunk ID, capped at size hits.
func (l *LexicalIndex) Explain(query string, size int) (map[string]string, error) {
	if size <= 0 {
		size = 10
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Highlight = bleve.NewHighlight()
	res, err := l.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	out := make(map[string]string, len(res.Hits))
	for _, hit := range res.Hits {
		if frags, ok := hit.Fragments["content"]; ok && len(frags) > 0 {
			out[hit.ID] = "matches: " + strings.TrimSpace(frags[0])
		} else {
			out[hit.ID] = "keyword match"
		}
	}
	return out, nil
}

// Close releases the underlying index resources.
func (l *LexicalIndex) Close() error {
	return l.idx.Close()
}

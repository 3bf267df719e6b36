package rag

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/atticus-legal/atticus/internal/llm"
)

// Confidence weights: mean context similarity vs. citation coverage.
const (
	DefaultSimilarityWeight = 0.6
	DefaultCitationWeight   = 0.4
	DefaultPreviewLength    = 200
)

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// Generator produces answers constrained to cited context chunks.
type Generator struct {
	provider   llm.Provider
	simWeight  float64
	citWeight  float64
	previewLen int
	logger     *log.Logger
}

// NewGenerator builds a grounded generator with normalized weights.
func NewGenerator(provider llm.Provider, simWeight, citWeight float64, previewLen int, logger *log.Logger) *Generator {
	if simWeight <= 0 {
		simWeight = DefaultSimilarityWeight
	}
	if citWeight <= 0 {
		citWeight = DefaultCitationWeight
	}
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[GENERATE] ", log.LstdFlags)
	}
	return &Generator{provider: provider, simWeight: simWeight, citWeight: citWeight, previewLen: previewLen, logger: logger}
}

// BuildPrompt renders the numbered context block and grounding instructions
// for a query. Exported so streaming callers can reuse the exact prompt.
func BuildPrompt(query string, context []RetrievalResult) string {
	var b strings.Builder
	b.WriteString("You are a legal research assistant. Answer the question using ONLY the numbered context passages below.\n")
	b.WriteString("Cite every passage you rely on with its bracketed index, e.g. [1] or [3].\n")
	b.WriteString("If the context is insufficient to answer, say so explicitly instead of guessing.\n\nCONTEXT:\n")
	for i, r := range context {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(r.Chunk.Content))
	}
	b.WriteString("QUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nANSWER:")
	return b.String()
}

// Generate issues one grounded generation call for the query and ranked
// context, extracts which citations the answer actually used and computes a
// confidence score. Provider failures degrade to a templated fallback answer
// and are never propagated to the caller.
func (g *Generator) Generate(ctx context.Context, query string, context []RetrievalResult) GroundedResponse {
	if !g.provider.Available() {
		g.logger.Printf("warn: generation provider unavailable, using fallback answer")
		return g.fallbackResponse(context)
	}

	answer, err := g.provider.Generate(ctx, BuildPrompt(query, context))
	if err != nil {
		g.logger.Printf("warn: generation failed, using fallback answer: %v", err)
		return g.fallbackResponse(context)
	}
	return g.Finalize(answer, context)
}

// Finalize turns a completed answer into a grounded response by extracting
// the citations it used and scoring confidence. Exported so streaming callers
// can ground text they accumulated themselves.
func (g *Generator) Finalize(answer string, context []RetrievalResult) GroundedResponse {
	citations := g.extractCitations(answer, context)
	return GroundedResponse{
		Answer:     answer,
		Citations:  citations,
		Confidence: g.confidence(context, len(citations)),
		Grounded:   len(citations) > 0,
	}
}

// extractCitations scans the answer for bracketed-integer markers, maps each
// back to its zero-based context index and builds citations in first
// appearance order, deduplicated by chunk identity. Out-of-range markers are
// discarded.
func (g *Generator) extractCitations(answer string, context []RetrievalResult) []Citation {
	var citations []Citation
	seen := make(map[string]bool)
	for _, m := range citationMarkerRe.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		idx := n - 1
		if idx < 0 || idx >= len(context) {
			continue
		}
		chunk := context[idx].Chunk
		if seen[chunk.ID] {
			continue
		}
		seen[chunk.ID] = true
		citations = append(citations, Citation{
			ChunkID: chunk.ID,
			Preview: truncate(chunk.Content, g.previewLen),
			Source:  chunk.Source,
			Score:   context[idx].Score,
		})
	}
	return citations
}

// confidence blends mean context similarity with citation coverage, rounded
// to two decimal places.
func (g *Generator) confidence(context []RetrievalResult, cited int) float64 {
	if len(context) == 0 {
		return 0
	}
	var sum float64
	for _, r := range context {
		sum += r.Score
	}
	meanScore := sum / float64(len(context))
	coverage := float64(cited) / float64(len(context))
	if coverage > 1 {
		coverage = 1
	}
	score := g.simWeight*meanScore + g.citWeight*coverage
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}

// fallbackResponse summarises the retrieved context when generation is
// unavailable, attaching up to the first 3 context chunks as citations.
func (g *Generator) fallbackResponse(context []RetrievalResult) GroundedResponse {
	answer := fmt.Sprintf("Found %d relevant passage(s) in the indexed documents. "+
		"The analysis service is temporarily unavailable; please review the cited passages directly.", len(context))

	var citations []Citation
	for i, r := range context {
		if i >= 3 {
			break
		}
		citations = append(citations, Citation{
			ChunkID: r.Chunk.ID,
			Preview: truncate(r.Chunk.Content, g.previewLen),
			Source:  r.Chunk.Source,
			Score:   r.Score,
		})
	}
	return GroundedResponse{
		Answer:     answer,
		Citations:  citations,
		Confidence: 0.5,
		Grounded:   len(citations) > 0,
	}
}

// truncate shortens s to at most n bytes, backing up to a rune boundary so a
// multi-byte character is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

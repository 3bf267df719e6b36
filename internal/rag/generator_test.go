package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func grContext() []RetrievalResult {
	return []RetrievalResult{
		{Chunk: Chunk{ID: "c1", Content: "The Supplier shall indemnify the Customer.", Source: "msa.txt"}, Score: 0.9},
		{Chunk: Chunk{ID: "c2", Content: "Either party may terminate with notice.", Source: "msa.txt"}, Score: 0.8},
		{Chunk: Chunk{ID: "c3", Content: "Fees are due net thirty.", Source: "msa.txt"}, Score: 0.7},
	}
}

func TestGenerateExtractsCitations(t *testing.T) {
	t.Parallel()
	provider := &stubProvider{
		available: true,
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "Indemnification is covered [1] and termination requires notice [2].", nil
		},
	}
	g := NewGenerator(provider, 0.6, 0.4, 200, nil)

	resp := g.Generate(context.Background(), "what is covered", grContext())
	if !resp.Grounded {
		t.Fatalf("answer with citations must be grounded")
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(resp.Citations))
	}
	if resp.Citations[0].ChunkID != "c1" || resp.Citations[1].ChunkID != "c2" {
		t.Fatalf("citations out of order: %s, %s", resp.Citations[0].ChunkID, resp.Citations[1].ChunkID)
	}
	// mean 0.8 * 0.6 + (2/3) * 0.4 = 0.7466 -> 0.75
	if resp.Confidence != 0.75 {
		t.Fatalf("confidence = %f, want 0.75", resp.Confidence)
	}
}

func TestGenerateDiscardsInvalidMarkers(t *testing.T) {
	t.Parallel()
	provider := &stubProvider{
		available: true,
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "See [1], [1] again, [0], [7] and [99].", nil
		},
	}
	g := NewGenerator(provider, 0.6, 0.4, 200, nil)

	resp := g.Generate(context.Background(), "q", grContext())
	if len(resp.Citations) != 1 {
		t.Fatalf("expected 1 deduplicated citation, got %d", len(resp.Citations))
	}
	if resp.Citations[0].ChunkID != "c1" {
		t.Fatalf("citation = %s, want c1", resp.Citations[0].ChunkID)
	}
}

func TestGenerateUncitedAnswerNotGrounded(t *testing.T) {
	t.Parallel()
	provider := &stubProvider{
		available: true,
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "The context is insufficient to answer this question.", nil
		},
	}
	g := NewGenerator(provider, 0.6, 0.4, 200, nil)

	resp := g.Generate(context.Background(), "q", grContext())
	if resp.Grounded {
		t.Fatalf("uncited answer must not be grounded")
	}
	if len(resp.Citations) != 0 {
		t.Fatalf("expected no citations, got %d", len(resp.Citations))
	}
	// mean 0.8 * 0.6 + 0 = 0.48
	if resp.Confidence != 0.48 {
		t.Fatalf("confidence = %f, want 0.48", resp.Confidence)
	}
}

func TestGenerateFallbackWhenUnavailable(t *testing.T) {
	t.Parallel()
	g := NewGenerator(&stubProvider{available: false}, 0.6, 0.4, 200, nil)

	resp := g.Generate(context.Background(), "q", grContext())
	if !strings.Contains(resp.Answer, "3 relevant passage(s)") {
		t.Fatalf("fallback answer should report context size: %q", resp.Answer)
	}
	if resp.Confidence != 0.5 {
		t.Fatalf("fallback confidence = %f, want 0.5", resp.Confidence)
	}
	if len(resp.Citations) != 3 {
		t.Fatalf("fallback should cite up to 3 chunks, got %d", len(resp.Citations))
	}
}

func TestGenerateFallbackOnProviderError(t *testing.T) {
	t.Parallel()
	provider := &stubProvider{
		available: true,
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	g := NewGenerator(provider, 0.6, 0.4, 200, nil)

	resp := g.Generate(context.Background(), "q", grContext())
	if resp.Confidence != 0.5 {
		t.Fatalf("provider failure should take the fallback path, confidence = %f", resp.Confidence)
	}
}

func TestConfidenceBounds(t *testing.T) {
	t.Parallel()
	g := NewGenerator(&stubProvider{available: true}, 0.6, 0.4, 200, nil)

	if got := g.confidence(nil, 0); got != 0 {
		t.Fatalf("empty context confidence = %f, want 0", got)
	}
	perfect := []RetrievalResult{{Chunk: Chunk{ID: "a"}, Score: 1.0}}
	if got := g.confidence(perfect, 5); got != 1.0 {
		t.Fatalf("confidence must clamp coverage, got %f", got)
	}
	for cited := 0; cited <= 4; cited++ {
		got := g.confidence(grContext(), cited)
		if got < 0 || got > 1 {
			t.Fatalf("confidence %f out of [0,1]", got)
		}
		if math.Round(got*100)/100 != got {
			t.Fatalf("confidence %f not rounded to 2 decimals", got)
		}
	}
}

func TestBuildPromptNumbersContext(t *testing.T) {
	t.Parallel()
	prompt := BuildPrompt("what are the payment terms", grContext())
	for _, want := range []string{"[1] The Supplier", "[2] Either party", "[3] Fees are due", "QUESTION: what are the payment terms"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestCitationPreviewTruncation(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 500)
	ctx := []RetrievalResult{{Chunk: Chunk{ID: "c1", Content: long, Source: "s"}, Score: 0.9}}
	provider := &stubProvider{
		available: true,
		generateFn: func(c context.Context, prompt string) (string, error) { return "answer [1]", nil },
	}
	g := NewGenerator(provider, 0.6, 0.4, 200, nil)

	resp := g.Generate(context.Background(), "q", ctx)
	if got := resp.Citations[0].Preview; len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Fatalf("preview length = %d, want 200 chars plus ellipsis", len(got))
	}
}

func TestCitationPreviewKeepsRunesWhole(t *testing.T) {
	t.Parallel()
	// "é" is 2 bytes; a 5-byte limit lands mid-rune on the third é
	got := truncate(strings.Repeat("é", 10), 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated preview is not valid UTF-8: %q", got)
	}
	if got != "éé..." {
		t.Fatalf("truncate = %q, want %q", got, "éé...")
	}
	if whole := truncate("court of María", 200); whole != "court of María" {
		t.Fatalf("short strings must pass through, got %q", whole)
	}
}

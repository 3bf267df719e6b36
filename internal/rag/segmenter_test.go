package rag

import (
	"strings"
	"testing"
)

func TestSplitClausesSectionMarkers(t *testing.T) {
	t.Parallel()
	text := "Section 1 Indemnification. The Supplier shall indemnify the Customer against all claims.\n" +
		"Section 2 Termination. Either party may terminate this agreement with thirty days notice."
	got := SplitClauses(text, 50)
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Section 1") {
		t.Fatalf("first clause should start with its marker, got %q", got[0])
	}
	if !strings.HasPrefix(got[1], "Section 2") {
		t.Fatalf("second clause should start with its marker, got %q", got[1])
	}
}

func TestSplitClausesNumberedHeadings(t *testing.T) {
	t.Parallel()
	text := "1. Payment Terms. All invoices are due within thirty days of receipt by the Customer.\n" +
		"2. Late Fees. Unpaid balances accrue interest at one percent per month until settled."
	got := SplitClauses(text, 50)
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %q", len(got), got)
	}
}

func TestSplitClausesBlankLineRuns(t *testing.T) {
	t.Parallel()
	text := "The parties agree to keep all exchanged materials strictly confidential at all times.\n\n" +
		"   \n" +
		"Upon termination each party shall return or destroy all confidential materials received."
	got := SplitClauses(text, 50)
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %q", len(got), got)
	}
}

func TestSplitClausesDropsShortFragments(t *testing.T) {
	t.Parallel()
	text := "Too short.\n\nThis clause is comfortably longer than fifty characters and must survive filtering."
	got := SplitClauses(text, 50)
	if len(got) != 1 {
		t.Fatalf("expected 1 clause, got %d: %q", len(got), got)
	}
	if strings.Contains(got[0], "Too short") {
		t.Fatalf("short fragment should have been dropped: %q", got[0])
	}
}

func TestSplitClausesMarkerMidDocument(t *testing.T) {
	t.Parallel()
	text := "This preamble describes the parties and the effective date of this master agreement.\n" +
		"Article 7 Liability. Neither party is liable for indirect or consequential damages."
	got := SplitClauses(text, 50)
	if len(got) != 2 {
		t.Fatalf("expected preamble and article, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[1], "Article 7") {
		t.Fatalf("marker should head the second clause, got %q", got[1])
	}
}

func TestSplitClausesEmptyInput(t *testing.T) {
	t.Parallel()
	if got := SplitClauses("", 50); len(got) != 0 {
		t.Fatalf("expected no clauses for empty input, got %q", got)
	}
	if got := SplitClauses("   \n\n  ", 50); len(got) != 0 {
		t.Fatalf("expected no clauses for whitespace input, got %q", got)
	}
}

package rag

import (
	"regexp"
	"strings"
)

// DefaultMinSegmentLength drops fragments too short to carry retrievable signal.
const DefaultMinSegmentLength = 50

var (
	sectionMarkerRe = regexp.MustCompile(`(?im)^(?:section|article|clause)\s+\d+`)
	numberedItemRe  = regexp.MustCompile(`(?m)^\d+\.\s+[A-Z]`)
	blankRunRe      = regexp.MustCompile(`\n[ \t]*\n+`)
)

// SplitClauses splits raw document text into logical clauses by applying three
// structural boundary heuristics in sequence, each refining the output of the
// previous one: section/article/clause markers, numbered headings, then
// blank-line runs. Segments shorter than minLen are dropped. Pure function.
func SplitClauses(text string, minLen int) []string {
	if minLen <= 0 {
		minLen = DefaultMinSegmentLength
	}

	segments := []string{text}
	segments = splitBefore(segments, sectionMarkerRe)
	segments = splitBefore(segments, numberedItemRe)
	segments = splitOn(segments, blankRunRe)

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if len(seg) >= minLen {
			out = append(out, seg)
		}
	}
	return out
}

// splitBefore cuts each segment immediately before every match of re,
// keeping the matched marker at the head of the new segment.
func splitBefore(segments []string, re *regexp.Regexp) []string {
	var out []string
	for _, seg := range segments {
		locs := re.FindAllStringIndex(seg, -1)
		if len(locs) == 0 {
			out = append(out, seg)
			continue
		}
		prev := 0
		for _, loc := range locs {
			if loc[0] > prev {
				out = append(out, seg[prev:loc[0]])
			}
			prev = loc[0]
		}
		out = append(out, seg[prev:])
	}
	return out
}

// splitOn splits each segment on every match of re, discarding the separator.
func splitOn(segments []string, re *regexp.Regexp) []string {
	var out []string
	for _, seg := range segments {
		out = append(out, re.Split(seg, -1)...)
	}
	return out
}

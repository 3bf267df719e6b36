package rag

import (
	"regexp"
	"strings"
)

// Default window parameters for oversized clause splitting.
const (
	DefaultMaxChunkSize = 1000
	DefaultChunkOverlap = 200
)

// clauseCategories maps category names to content patterns. Order matters:
// the first matching entry wins.
var clauseCategories = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"indemnification", regexp.MustCompile(`(?i)indemnif`)},
	{"liability", regexp.MustCompile(`(?i)liabilit`)},
	{"termination", regexp.MustCompile(`(?i)terminat`)},
	{"confidentiality", regexp.MustCompile(`(?i)confidential|non-disclosure`)},
	{"intellectual_property", regexp.MustCompile(`(?i)intellectual property|copyright|trademark|patent`)},
	{"payment", regexp.MustCompile(`(?i)payment|fees|compensation|invoice`)},
	{"data_protection", regexp.MustCompile(`(?i)data protection|personal data|privacy|gdpr`)},
	{"governing_law", regexp.MustCompile(`(?i)governing law|jurisdiction|venue`)},
	{"force_majeure", regexp.MustCompile(`(?i)force majeure`)},
	{"warranty", regexp.MustCompile(`(?i)warrant`)},
}

var headingRe = regexp.MustCompile(`^(?:(?:Section|Article|Clause)\s+\d+[.:)]?\s*|\d+[.)]\s*)?([A-Z][A-Za-z][A-Za-z0-9 ,'&-]{1,78})`)

// Chunker converts clause segments into bounded, overlapping chunks.
type Chunker struct {
	MaxChunkSize int
	Overlap      int
}

// NewChunker builds a chunker, normalizing non-positive parameters to
// defaults. Overlap always ends up strictly below maxSize so the sliding
// window over oversized segments advances.
func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = DefaultChunkOverlap
	}
	if overlap >= maxSize {
		overlap = maxSize / 5
	}
	return &Chunker{MaxChunkSize: maxSize, Overlap: overlap}
}

// Chunk converts ordered segments into chunks tagged with provenance metadata.
// Spans are expressed in running source-document coordinates so sibling chunks
// from one source are monotonically ordered. Deterministic for fixed input.
func (c *Chunker) Chunk(segments []string, source string) []Chunk {
	var chunks []Chunk
	offset := 0
	seq := 0

	emit := func(content string, start, end int) {
		chunks = append(chunks, Chunk{
			ID:        ChunkID(source, seq),
			Content:   content,
			Source:    source,
			Category:  inferCategory(content),
			Heading:   inferHeading(content),
			StartChar: start,
			EndChar:   end,
		})
		seq++
	}

	for _, seg := range segments {
		if len(seg) <= c.MaxChunkSize {
			emit(seg, offset, offset+len(seg))
		} else {
			step := c.MaxChunkSize - c.Overlap
			for start := 0; start < len(seg); start += step {
				end := start + c.MaxChunkSize
				if end > len(seg) {
					end = len(seg)
				}
				emit(seg[start:end], offset+start, offset+end)
			}
		}
		offset += len(seg)
	}
	return chunks
}

// inferCategory classifies clause content against the ordered category table.
func inferCategory(content string) string {
	for _, cat := range clauseCategories {
		if cat.pattern.MatchString(content) {
			return cat.name
		}
	}
	return "general"
}

// inferHeading extracts the first capitalized run after an optional
// numeric/label prefix.
func inferHeading(content string) string {
	firstLine := content
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	m := headingRe.FindStringSubmatch(strings.TrimSpace(firstLine))
	if m == nil {
		return "Unnamed Section"
	}
	return strings.TrimRight(strings.TrimSpace(m[1]), " ,-")
}

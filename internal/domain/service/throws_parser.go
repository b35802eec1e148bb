package service

import (
	"funcscan/internal/domain/valueobject"
	"funcscan/internal/port/outbound"
	"strings"
)

// throwsTagTitles are the tag keywords that declare a raised error.
var throwsTagTitles = map[string]struct{}{
	"throws":    {},
	"exception": {},
}

// ThrowsParseResult is the outcome of parsing one documentation comment block.
// A block the grammar rejects is reported as Malformed with no entries; it is
// never an error.
type ThrowsParseResult struct {
	Entries   []valueobject.ThrowsEntry
	Malformed bool
}

// ThrowsParserOption configures a ThrowsParser.
type ThrowsParserOption func(*ThrowsParser)

// WithRequireSummary makes the parser ignore blocks that have no summary text
// before their first tag.
func WithRequireSummary(required bool) ThrowsParserOption {
	return func(p *ThrowsParser) {
		p.requireSummary = required
	}
}

// ThrowsParser extracts @throws / @exception declarations from documentation
// comment blocks.
type ThrowsParser struct {
	docParser      outbound.DocCommentParser
	requireSummary bool
}

// NewThrowsParser creates a ThrowsParser backed by docParser.
func NewThrowsParser(docParser outbound.DocCommentParser, opts ...ThrowsParserOption) *ThrowsParser {
	p := &ThrowsParser{docParser: docParser}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseThrows parses one raw comment block, leading "/**" included.
func (p *ThrowsParser) ParseThrows(raw string) ThrowsParseResult {
	result := ThrowsParseResult{Entries: make([]valueobject.ThrowsEntry, 0)}
	if p == nil || p.docParser == nil {
		return result
	}

	doc, err := p.docParser.ParseDocComment(raw)
	if err != nil || doc == nil {
		result.Malformed = true
		return result
	}

	if p.requireSummary && strings.TrimSpace(doc.Description) == "" {
		return result
	}

	for _, tag := range doc.Tags {
		if !isThrowsTag(tag.Title) {
			continue
		}
		result.Entries = append(result.Entries, valueobject.NewThrowsEntry(throwsTypeName(tag), tag.Description))
	}

	return result
}

// ParseAll parses blocks in order and concatenates their entries. It returns
// the number of blocks that were discarded as malformed.
func (p *ThrowsParser) ParseAll(raws []string) ([]valueobject.ThrowsEntry, int) {
	entries := make([]valueobject.ThrowsEntry, 0)
	malformed := 0

	for _, raw := range raws {
		result := p.ParseThrows(raw)
		if result.Malformed {
			malformed++
			continue
		}
		entries = append(entries, result.Entries...)
	}

	return entries, malformed
}

func isThrowsTag(title string) bool {
	_, ok := throwsTagTitles[strings.TrimPrefix(strings.TrimSpace(title), "@")]
	return ok
}

// throwsTypeName prefers the declared identifier, then the literal type
// expression. An empty result falls back to "Error" in NewThrowsEntry.
func throwsTypeName(tag outbound.DocTag) string {
	if name := strings.TrimSpace(tag.TypeName); name != "" {
		return name
	}
	expr := strings.TrimSpace(tag.TypeExpression)
	expr = strings.TrimPrefix(expr, "{")
	expr = strings.TrimSuffix(expr, "}")
	return strings.TrimSpace(expr)
}

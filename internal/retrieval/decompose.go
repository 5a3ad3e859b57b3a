package retrieval

import "strings"

// PatternDecomposer splits conjunctive queries ("A and B", "A, B") into
// independently-retrieved sub-queries, generalized from the teacher's
// QueryDecomposer interface and PatternDecomposer implementation — the
// teacher decomposes generic single queries into Go-idiom search patterns
// ("Search function" -> "func Search", ") Search(", ...); this engine's
// spec instead calls for conjunction splitting, so the interface shape is
// kept but the patterns are rewritten for that purpose.
type PatternDecomposer struct{}

// NewPatternDecomposer builds a decomposer with no external dependencies.
func NewPatternDecomposer() *PatternDecomposer { return &PatternDecomposer{} }

// ShouldDecompose reports whether query contains a top-level conjunction.
func (d *PatternDecomposer) ShouldDecompose(query string) bool {
	return len(d.splitConjunctions(query)) > 1
}

// Decompose splits a conjunctive query into sub-queries, each carrying
// equal weight (1.0); a query with no conjunction decomposes to itself,
// the single-query fast path spec.md §4.7 step 2 describes.
func (d *PatternDecomposer) Decompose(query string) []SubQuery {
	parts := d.splitConjunctions(query)
	subs := make([]SubQuery, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		subs = append(subs, SubQuery{Query: p, Weight: 1.0})
	}
	if len(subs) == 0 {
		return []SubQuery{{Query: query, Weight: 1.0}}
	}
	return subs
}

// splitConjunctions splits on commas and the standalone word "and",
// avoiding splitting inside quoted phrases since a quoted phrase signals
// the user wants it treated as one exact unit.
func (d *PatternDecomposer) splitConjunctions(query string) []string {
	if strings.HasPrefix(strings.TrimSpace(query), `"`) || strings.HasPrefix(strings.TrimSpace(query), "'") {
		return []string{query}
	}

	byComma := strings.Split(query, ",")
	var parts []string
	for _, segment := range byComma {
		parts = append(parts, splitOnWord(segment, "and")...)
	}
	return parts
}

// splitOnWord splits s on standalone occurrences of word (case-insensitive,
// word-boundary aware so "android" isn't split on "and").
func splitOnWord(s, word string) []string {
	fields := strings.Fields(s)
	var parts []string
	var current []string

	for _, f := range fields {
		if strings.EqualFold(f, word) {
			if len(current) > 0 {
				parts = append(parts, strings.Join(current, " "))
				current = nil
			}
			continue
		}
		current = append(current, f)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	if len(parts) == 0 {
		return []string{s}
	}
	return parts
}

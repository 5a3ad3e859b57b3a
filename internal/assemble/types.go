// Package assemble implements the Context Assembler (C8): it turns an
// ordered list of root hits into the final token-budgeted Markdown context
// string returned to the host agent, per spec.md Section 4.8.
package assemble

import "context"

// Config controls one Assembler's layout and budget behavior; field names
// mirror config.AssemblyConfig so callers can pass that section through
// directly.
type Config struct {
	MaxContextTokens int
	TokenEncoding    string
	// RootFraction is the share of the budget reserved for root symbols
	// before spillover; spec.md §4.8 fixes this at 70%.
	RootFraction float64
	// MaxRelatedPerRoot caps how many one-hop dependency symbols a single
	// root can contribute to Related, keeping the walk bounded regardless
	// of fan-out.
	MaxRelatedPerRoot int
}

// DefaultRootFraction is spec.md §4.8's 70/30 root/related split.
const DefaultRootFraction = 0.7

// DefaultMaxRelatedPerRoot bounds the one-hop dependency walk per root.
const DefaultMaxRelatedPerRoot = 8

// WithDefaults fills zero-value fields.
func (c Config) WithDefaults() Config {
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = 8192
	}
	if c.TokenEncoding == "" {
		c.TokenEncoding = "o200k_base"
	}
	if c.RootFraction <= 0 {
		c.RootFraction = DefaultRootFraction
	}
	if c.MaxRelatedPerRoot <= 0 {
		c.MaxRelatedPerRoot = DefaultMaxRelatedPerRoot
	}
	return c
}

// Request is one assembly call: the ordered root hits (already ranked and
// hydrated by the Retriever) plus the query that drives line truncation.
type Request struct {
	// RootSymbolIDs is the ordered list of root symbol ids, most relevant
	// first. Order determines rendering order and budget priority.
	RootSymbolIDs []string
	// Query is the first sub-query in multi-query mode, used to score
	// candidate lines during query-aware truncation.
	Query string
	// MaxTokens overrides Config.MaxContextTokens when positive.
	MaxTokens int
}

// Result is the assembled context plus its bookkeeping.
type Result struct {
	Text        string
	TokenCount  int
	RootIDs     []string
	RelatedIDs  []string
	// Truncated is true if any rendered symbol's source had to be
	// line-truncated to fit its sub-budget, or if the whole formatted text
	// was cut down to the overall budget.
	Truncated bool
}

// SourceLoader resolves a symbol's source text from its file location.
// Implemented by FileSourceLoader against the indexed repository's
// filesystem; tests substitute an in-memory fake.
type SourceLoader interface {
	ReadRange(ctx context.Context, filePath string, startLine, endLine int) (string, error)
}

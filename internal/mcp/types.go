// Package mcp exposes the engine's ~18-tool surface (spec.md §6 External
// Interfaces) over the Model Context Protocol, composing the Retriever
// (C7), the Graph Engine (C6), the Context Assembler (C8), and the
// Metadata Store's auxiliary lookups into one named handler per tool.
package mcp

import "github.com/iceinvein/code-intelligence-mcp-server/internal/store"

// SymbolOutput is the common wire representation of a store.Symbol across
// every tool that returns one.
type SymbolOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Language  string `json:"language"`
	Exported  bool   `json:"exported"`
	Signature string `json:"signature,omitempty"`
	PackageID string `json:"package_id,omitempty"`
}

func toSymbolOutput(s *store.Symbol) SymbolOutput {
	if s == nil {
		return SymbolOutput{}
	}
	return SymbolOutput{
		ID: s.ID, Name: s.Name, Kind: string(s.Kind), FilePath: s.FilePath,
		StartLine: s.StartLine, EndLine: s.EndLine, Language: s.Language,
		Exported: s.Exported, Signature: s.Signature, PackageID: s.PackageID,
	}
}

func toSymbolOutputs(symbols []*store.Symbol) []SymbolOutput {
	out := make([]SymbolOutput, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, toSymbolOutput(s))
	}
	return out
}

// GraphHitOutput is the common wire representation of a graph.Hit.
type GraphHitOutput struct {
	SymbolID      string `json:"symbol_id"`
	Depth         int    `json:"depth"`
	Kind          string `json:"kind"`
	AtFile        string `json:"at_file"`
	AtLine        int    `json:"at_line"`
	EvidenceCount int    `json:"evidence_count"`
}

// --- search_code ---

type SearchCodeInput struct {
	Query     string `json:"query" jsonschema:"the natural-language or code-shaped search query"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of root hits, default 10"`
	MaxTokens int    `json:"max_tokens,omitempty" jsonschema:"context assembly token budget, default from config"`
}

type SearchCodeOutput struct {
	Hits    []SearchHitOutput `json:"hits"`
	Context string            `json:"context" jsonschema:"assembled Markdown context for the ranked hits"`
	Intent  string            `json:"intent" jsonschema:"detected query intent"`
}

type SearchHitOutput struct {
	Symbol SymbolOutput `json:"symbol"`
	Score  float64      `json:"score"`
}

// --- get_definition ---

type GetDefinitionInput struct {
	SymbolID string `json:"symbol_id,omitempty" jsonschema:"symbol id, if already known"`
	Name     string `json:"name,omitempty" jsonschema:"symbol name to resolve, if symbol_id is unknown"`
}

type GetDefinitionOutput struct {
	Symbol    SymbolOutput `json:"symbol"`
	Docstring *DocOutput   `json:"docstring,omitempty"`
	Context   string       `json:"context" jsonschema:"assembled Markdown context for this definition"`
}

type DocOutput struct {
	Summary string `json:"summary,omitempty"`
	Returns string `json:"returns,omitempty"`
}

// --- find_references ---

type FindReferencesInput struct {
	SymbolID string `json:"symbol_id" jsonschema:"symbol id to find references to"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"traversal depth, default 1"`
}

type FindReferencesOutput struct {
	References []GraphHitOutput `json:"references"`
}

// --- get_call_hierarchy ---

type GetCallHierarchyInput struct {
	SymbolID  string `json:"symbol_id" jsonschema:"symbol id to walk the call hierarchy from"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (callers) or downstream (callees), default downstream"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"traversal depth, default 3"`
}

type GetCallHierarchyOutput struct {
	Hits []GraphHitOutput `json:"hits"`
}

// --- get_type_graph ---

type GetTypeGraphInput struct {
	SymbolID string `json:"symbol_id" jsonschema:"type symbol id to walk extends/implements/alias edges from"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"traversal depth, default 3"`
}

type GetTypeGraphOutput struct {
	Hits []GraphHitOutput `json:"hits"`
}

// --- explore_dependency_graph ---

type ExploreDependencyGraphInput struct {
	SymbolID  string `json:"symbol_id" jsonschema:"symbol or file-root id to walk import/reference edges from"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (dependents) or downstream (dependencies), default downstream"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"traversal depth, default 2"`
}

type ExploreDependencyGraphOutput struct {
	Hits []GraphHitOutput `json:"hits"`
}

// --- trace_data_flow ---

type TraceDataFlowInput struct {
	SymbolID  string `json:"symbol_id" jsonschema:"variable/field symbol id to trace reads/writes from"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (writers) or downstream (readers), default downstream"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"traversal depth, default 3"`
}

type TraceDataFlowOutput struct {
	Hits []GraphHitOutput `json:"hits"`
}

// --- find_similar_code ---

type FindSimilarCodeInput struct {
	SymbolID string `json:"symbol_id" jsonschema:"symbol id to find semantically similar symbols for"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum results, default 10"`
}

type FindSimilarCodeOutput struct {
	Hits []SearchHitOutput `json:"hits"`
}

// --- find_affected_code ---

type FindAffectedCodeInput struct {
	SymbolID string `json:"symbol_id" jsonschema:"symbol id whose upstream dependents (blast radius) to find"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"traversal depth, default 3"`
}

type FindAffectedCodeOutput struct {
	Affected []GraphHitOutput `json:"affected"`
}

// --- summarize_file ---

type SummarizeFileInput struct {
	FilePath string `json:"file_path" jsonschema:"repository-relative file path"`
}

type SummarizeFileOutput struct {
	FilePath string         `json:"file_path"`
	Package  *PackageOutput `json:"package,omitempty"`
	Symbols  []SymbolOutput `json:"symbols"`
}

type PackageOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Ecosystem string `json:"ecosystem,omitempty"`
}

// --- get_module_summary ---

type GetModuleSummaryInput struct {
	PackageID string `json:"package_id" jsonschema:"package id to summarize"`
}

type GetModuleSummaryOutput struct {
	Package         PackageOutput  `json:"package"`
	TopSymbolsByPageRank []SymbolOutput `json:"top_symbols_by_pagerank"`
}

// --- search_todos ---

type SearchTODOsInput struct {
	Keyword string `json:"keyword,omitempty" jsonschema:"TODO or FIXME, matched exactly against each entry's keyword"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum results, default 20"`
}

type SearchTODOsOutput struct {
	TODOs []TODOOutput `json:"todos"`
}

type TODOOutput struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Keyword  string `json:"keyword"`
	Text     string `json:"text"`
	SymbolID string `json:"symbol_id,omitempty"`
}

// --- find_tests_for_symbol ---

type FindTestsForSymbolInput struct {
	SymbolID string `json:"symbol_id" jsonschema:"symbol id to find covering tests for"`
}

type FindTestsForSymbolOutput struct {
	Tests []TestLinkOutput `json:"tests"`
}

type TestLinkOutput struct {
	TestFilePath    string `json:"test_file_path"`
	SubjectFilePath string `json:"subject_file_path"`
	SubjectSymbolID string `json:"subject_symbol_id,omitempty"`
}

// --- search_decorators ---

type SearchDecoratorsInput struct {
	Name  string `json:"name" jsonschema:"decorator/annotation name to search for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results, default 20"`
}

type SearchDecoratorsOutput struct {
	Decorators []DecoratorOutput `json:"decorators"`
}

type DecoratorOutput struct {
	SymbolID string `json:"symbol_id"`
	Name     string `json:"name"`
	Known    bool   `json:"known"`
}

// --- hydrate_symbols ---

type HydrateSymbolsInput struct {
	SymbolIDs []string `json:"symbol_ids" jsonschema:"symbol ids to fetch in one batch"`
}

type HydrateSymbolsOutput struct {
	Symbols []SymbolOutput `json:"symbols"`
}

// --- report_selection ---

type ReportSelectionInput struct {
	Query    string `json:"query" jsonschema:"the original search query"`
	SymbolID string `json:"symbol_id" jsonschema:"the symbol the caller actually used"`
	Position int    `json:"position" jsonschema:"the hit's 0-indexed rank in the returned list"`
}

type ReportSelectionOutput struct {
	Recorded bool `json:"recorded"`
}

// --- refresh_index ---

type RefreshIndexInput struct {
	Full bool `json:"full,omitempty" jsonschema:"accepted but currently ignored: unchanged files are always skipped"`
}

type RefreshIndexOutput struct {
	FilesScanned   int    `json:"files_scanned"`
	FilesIndexed   int    `json:"files_indexed"`
	FilesSkipped   int    `json:"files_skipped"`
	SymbolsIndexed int    `json:"symbols_indexed"`
	EdgesResolved  int    `json:"edges_resolved"`
	DurationMS     int64  `json:"duration_ms"`
	Errors         []string `json:"errors,omitempty"`
}

// --- get_index_stats ---

type GetIndexStatsInput struct{}

type GetIndexStatsOutput struct {
	TotalSymbols int    `json:"total_symbols"`
	TotalEdges   int    `json:"total_edges"`
	CheckpointStage string `json:"checkpoint_stage,omitempty"`
}

// --- explain_search ---

type ExplainSearchInput struct {
	Query string `json:"query" jsonschema:"the query to explain scoring for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum hits to explain, default 5"`
}

type ExplainSearchOutput struct {
	Intent string               `json:"intent"`
	Hits   []ExplainedHitOutput `json:"hits"`
}

type ExplainedHitOutput struct {
	Symbol  SymbolOutput      `json:"symbol"`
	Score   float64           `json:"score"`
	Signals map[string]float64 `json:"signals"`
	Sources map[string]int     `json:"sources"`
}

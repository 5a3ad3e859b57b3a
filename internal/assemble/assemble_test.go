package assemble

import (
	"context"
	"strings"
	"testing"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

func TestAssemble_RootAndCalleeBothAppear(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["alpha"] = &store.Symbol{
		ID: "alpha", Name: "alpha", Kind: store.KindFunction, FilePath: "a.ts",
		StartLine: 1, EndLine: 1, Language: "typescript", Exported: true,
	}
	meta.symbols["beta"] = &store.Symbol{
		ID: "beta", Name: "beta", Kind: store.KindFunction, FilePath: "a.ts",
		StartLine: 2, EndLine: 2, Language: "typescript", Exported: true,
	}
	meta.edgesFrom["alpha"] = []*store.Edge{{FromSymbolID: "alpha", ToSymbolID: "beta", Kind: store.EdgeCall}}

	source := &fakeSourceLoader{files: map[string][]string{
		"a.ts": {
			"export function alpha(){return beta()}",
			"export function beta(){return 123}",
		},
	}}

	asm, err := New(Config{}, meta, source)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := asm.Assemble(context.Background(), Request{RootSymbolIDs: []string{"alpha"}, Query: "alpha"})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	if !strings.Contains(result.Text, "export function alpha") {
		t.Fatalf("expected assembled context to contain the alpha definition, got:\n%s", result.Text)
	}
	if !strings.Contains(result.Text, "export function beta") {
		t.Fatalf("expected assembled context to contain the beta definition via the call edge, got:\n%s", result.Text)
	}
}

func TestAssemble_RespectsTokenBudget(t *testing.T) {
	meta := newFakeMetadataStore()
	files := map[string][]string{}
	var roots []string
	for i := 0; i < 6; i++ {
		id := string(rune('a' + i))
		path := id + ".go"
		meta.symbols[id] = &store.Symbol{
			ID: id, Name: "symbol" + id, Kind: store.KindFunction, FilePath: path,
			StartLine: 1, EndLine: 10, Language: "go",
		}
		var lines []string
		for j := 0; j < 10; j++ {
			lines = append(lines, "line of filler code that takes up some tokens "+id)
		}
		files[path] = lines
		roots = append(roots, id)
	}
	source := &fakeSourceLoader{files: files}

	asm, err := New(Config{MaxContextTokens: 100}, meta, source)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := asm.Assemble(context.Background(), Request{RootSymbolIDs: roots, Query: "symbola"})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	if result.TokenCount > 100 {
		t.Fatalf("expected token count <= 100, got %d", result.TokenCount)
	}
	if !strings.Contains(result.Text, "symbola") {
		t.Fatalf("expected highest-ranked hit's name to appear verbatim, got:\n%s", result.Text)
	}
}

func TestAssemble_NoRootsReturnsEmptyResult(t *testing.T) {
	meta := newFakeMetadataStore()
	source := &fakeSourceLoader{files: map[string][]string{}}
	asm, err := New(Config{}, meta, source)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	result, err := asm.Assemble(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if result.Text != "" {
		t.Fatalf("expected empty text for no roots, got %q", result.Text)
	}
}

func TestRenderJSDocBody_EmptyDocstringRendersNothing(t *testing.T) {
	if got := renderJSDocBody(nil); got != "" {
		t.Fatalf("expected empty string for nil docstring, got %q", got)
	}
	if got := renderJSDocBody(&store.Docstring{}); got != "" {
		t.Fatalf("expected empty string for blank docstring, got %q", got)
	}
}

func TestRenderJSDocBody_RendersSummaryParamsAndReturns(t *testing.T) {
	doc := &store.Docstring{
		Summary: "Parses a query string.",
		Params:  `[{"name":"raw","description":"the raw query text"}]`,
		Returns: "a ParsedQuery",
	}
	got := renderJSDocBody(doc)
	for _, want := range []string{"Parses a query string.", "raw", "the raw query text", "a ParsedQuery"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected rendered JSDoc to contain %q, got:\n%s", want, got)
		}
	}
}

func TestScoreLine_WordBoundaryMatchScoresHigherThanSubstring(t *testing.T) {
	boundary := scoreLine([]string{"parse"}, "func parse(x string) {")
	substring := scoreLine([]string{"parse"}, "func reparsex(x string) {")
	if boundary <= substring {
		t.Fatalf("expected word-boundary match to score higher: boundary=%v substring=%v", boundary, substring)
	}
}

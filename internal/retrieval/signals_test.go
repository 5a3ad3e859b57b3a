package retrieval

import (
	"testing"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

func TestIsTestFile_RecognizesPerLanguageConventions(t *testing.T) {
	cases := map[string]bool{
		"internal/index/pipeline_test.go": true,
		"src/parser.test.ts":              true,
		"src/parser.spec.js":              true,
		"tests/test_parser.py":            true,
		"pkg/parser_test.py":              true,
		"__tests__/parser.js":             true,
		"internal/index/pipeline.go":      false,
		"src/parser.ts":                   false,
	}
	for path, want := range cases {
		if got := IsTestFile(path); got != want {
			t.Errorf("IsTestFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestApplyStructuralSignals_PenalizesTestFilesUnlessTestIntent(t *testing.T) {
	h := &Hit{Score: 10, Symbol: &store.Symbol{FilePath: "internal/x/y_test.go"}}
	applyStructuralSignals(h, IntentGeneral, nil)
	if h.Score != 5 {
		t.Fatalf("got score %v, want 5 (halved)", h.Score)
	}

	h2 := &Hit{Score: 10, Symbol: &store.Symbol{FilePath: "internal/x/y_test.go"}}
	applyStructuralSignals(h2, IntentTest, nil)
	if h2.Score != 10 {
		t.Fatalf("test intent should not penalize test files, got %v", h2.Score)
	}
}

func TestApplyStructuralSignals_PenalizesBuildVendorBoostsSrcLibApp(t *testing.T) {
	h := &Hit{Score: 0, Symbol: &store.Symbol{FilePath: "vendor/thing/file.go"}}
	applyStructuralSignals(h, IntentGeneral, nil)
	if h.Signals.DirectoryAdjust != buildVendorPenalty {
		t.Fatalf("got directory adjust %v, want %v", h.Signals.DirectoryAdjust, buildVendorPenalty)
	}

	h2 := &Hit{Score: 0, Symbol: &store.Symbol{FilePath: "src/thing/file.go"}}
	applyStructuralSignals(h2, IntentGeneral, nil)
	if h2.Signals.DirectoryAdjust != srcLibAppBoost {
		t.Fatalf("got directory adjust %v, want %v", h2.Signals.DirectoryAdjust, srcLibAppBoost)
	}
}

func TestApplyStructuralSignals_ExportBoost(t *testing.T) {
	h := &Hit{Score: 1, Symbol: &store.Symbol{FilePath: "a/b.go", Exported: true}}
	applyStructuralSignals(h, IntentGeneral, nil)
	if h.Signals.ExportBoost != exportBoost {
		t.Fatalf("got export boost %v", h.Signals.ExportBoost)
	}
}

func TestApplyIntentMultiplier_DefinitionAndTestAndSchema(t *testing.T) {
	h := &Hit{Score: 1, Symbol: &store.Symbol{Name: "Foo", FilePath: "a.go"}}
	applyIntentMultiplier(h, IntentDefinition, nil)
	if h.Score != intentDefinitionMult {
		t.Fatalf("got %v, want %v", h.Score, intentDefinitionMult)
	}

	h2 := &Hit{Score: 1, Symbol: &store.Symbol{Name: "Foo", FilePath: "a.go"}}
	applyIntentMultiplier(h2, IntentTest, nil)
	if h2.Score != intentTestMult {
		t.Fatalf("got %v, want %v", h2.Score, intentTestMult)
	}

	h3 := &Hit{Score: 1, Symbol: &store.Symbol{Name: "Foo", FilePath: "a.go"}}
	applyIntentMultiplier(h3, IntentSchema, []string{"foo"})
	if h3.Score != intentSchemaMultHigh {
		t.Fatalf("got %v, want schema-high %v", h3.Score, intentSchemaMultHigh)
	}
}

func TestApplyPopularitySignal_PrefersNormalizedPageRank(t *testing.T) {
	h := &Hit{Score: 0}
	applyPopularitySignal(h, &store.SymbolMetrics{NormalizedPageRank: 0.5}, 0.05, 50)
	if h.Score != 0.025 {
		t.Fatalf("got %v, want 0.025", h.Score)
	}
}

func TestApplyPopularitySignal_FallsBackToCappedIncomingCount(t *testing.T) {
	h := &Hit{Score: 0}
	applyPopularitySignal(h, &store.SymbolMetrics{PopularityCount: 1000}, 0.05, 50)
	if h.Score != 0.05*50 {
		t.Fatalf("got %v, want capped boost", h.Score)
	}
}

func TestApplyDocumentationBoost_OnlyForNonEmptyDocstring(t *testing.T) {
	h := &Hit{Score: 2}
	applyDocumentationBoost(h, &store.Docstring{Summary: "does a thing"})
	if h.Score != 3 {
		t.Fatalf("got %v, want 3", h.Score)
	}

	h2 := &Hit{Score: 2}
	applyDocumentationBoost(h2, nil)
	if h2.Score != 2 {
		t.Fatalf("got %v, want unchanged 2", h2.Score)
	}
}

func TestSelectionBoostContribution_DecaysWithAgeAndPosition(t *testing.T) {
	fresh := SelectionBoostContribution(1.0, 0, 0)
	old := SelectionBoostContribution(1.0, 0, 30)
	if old >= fresh {
		t.Fatalf("older selection should contribute less: fresh=%v old=%v", fresh, old)
	}
	early := SelectionBoostContribution(1.0, 0, 0)
	later := SelectionBoostContribution(1.0, 5, 0)
	if later >= early {
		t.Fatalf("later position should contribute less: early=%v later=%v", early, later)
	}
}

func TestFileAffinityContribution_ScalesAndCaps(t *testing.T) {
	now := time.Now()
	aff := &store.FileAffinity{ViewCount: 100, EditCount: 50, LastAccessedAt: now}
	got := FileAffinityContribution(1.0, aff, now)
	if got <= 0 || got > 1.0 {
		t.Fatalf("expected contribution in (0,1], got %v", got)
	}
}

func TestFileAffinityContribution_NilAffinityIsZero(t *testing.T) {
	if got := FileAffinityContribution(1.0, nil, time.Now()); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestApplyPackageBoost_OnlySamePackage(t *testing.T) {
	h := &Hit{Score: 1, Symbol: &store.Symbol{PackageID: "pkg-a"}}
	applyPackageBoost(h, IntentDefinition, "pkg-a")
	if h.Score != packageBoostPrimary {
		t.Fatalf("got %v, want %v", h.Score, packageBoostPrimary)
	}

	h2 := &Hit{Score: 1, Symbol: &store.Symbol{PackageID: "pkg-b"}}
	applyPackageBoost(h2, IntentDefinition, "pkg-a")
	if h2.Score != 1 {
		t.Fatalf("cross-package hit should be untouched, got %v", h2.Score)
	}
}

package retrieval

import (
	"math"
	"strings"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

const (
	testFilePenaltyFactor  = 0.5
	glueFilePenalty        = -5.0
	buildVendorPenalty     = -15.0
	srcLibAppBoost         = 1.0
	queryTokenPathBoost    = 2.0
	exportBoost            = 0.1
	docBoostFactor         = 1.5
	intentDefinitionMult   = 1.5
	intentTestMult         = 2.0
	intentSchemaMultLow    = 50.0
	intentSchemaMultHigh   = 75.0
	packageBoostDefault    = 1.15
	packageBoostError      = 1.1
	packageBoostPrimary    = 1.2
)

// IsTestFile reports whether filePath names a test file across the
// languages this engine indexes, grounded on the teacher's IsTestFile.
func IsTestFile(filePath string) bool {
	if strings.HasSuffix(filePath, "_test.go") {
		return true
	}
	if strings.Contains(filePath, ".test.") || strings.Contains(filePath, ".spec.") {
		return true
	}
	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}
	if strings.HasPrefix(fileName, "test_") && strings.HasSuffix(fileName, ".py") {
		return true
	}
	if strings.HasSuffix(fileName, "_test.py") {
		return true
	}
	if strings.Contains(filePath, "/test/") || strings.Contains(filePath, "/tests/") ||
		strings.HasPrefix(filePath, "test/") || strings.HasPrefix(filePath, "tests/") {
		return true
	}
	if strings.Contains(filePath, "/__tests__/") || strings.HasPrefix(filePath, "__tests__/") {
		return true
	}
	return false
}

// isGlueFile reports whether a file looks like a pure re-export barrel
// (index.ts/index.js/__init__.py at a directory root with no other
// meaningful content signal available at this layer beyond the name itself).
func isGlueFile(filePath string) bool {
	base := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		base = filePath[idx+1:]
	}
	switch base {
	case "index.ts", "index.js", "index.tsx", "index.jsx", "__init__.py", "mod.rs":
		return true
	}
	return false
}

var buildVendorDirs = []string{"build/", "vendor/", "dist/", "node_modules/", ".git/"}
var srcLibAppDirs = []string{"src/", "lib/", "app/"}

func isBuildOrVendorPath(filePath string) bool {
	for _, d := range buildVendorDirs {
		if strings.HasPrefix(filePath, d) || strings.Contains(filePath, "/"+d) {
			return true
		}
	}
	return false
}

func isSrcLibAppPath(filePath string) bool {
	for _, d := range srcLibAppDirs {
		if strings.HasPrefix(filePath, d) || strings.Contains(filePath, "/"+d) {
			return true
		}
	}
	return false
}

func pathMatchesQueryTokens(filePath string, queryTokens []string) bool {
	lower := strings.ToLower(filePath)
	for _, tok := range queryTokens {
		if len(tok) >= 3 && strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// applyStructuralSignals is signal stage 1: test-file penalty, glue-file
// penalty, directory semantics, export boost.
func applyStructuralSignals(hit *Hit, intent Intent, queryTokens []string) {
	path := hit.Symbol.FilePath

	if IsTestFile(path) && intent != IntentTest {
		hit.Score *= testFilePenaltyFactor
		hit.Signals.TestPenalty = testFilePenaltyFactor
	} else {
		hit.Signals.TestPenalty = 1.0
	}

	if isGlueFile(path) {
		hit.Score += glueFilePenalty
		hit.Signals.GlueFilePenalty = glueFilePenalty
	}

	switch {
	case isBuildOrVendorPath(path):
		hit.Score += buildVendorPenalty
		hit.Signals.DirectoryAdjust += buildVendorPenalty
	case isSrcLibAppPath(path):
		hit.Score += srcLibAppBoost
		hit.Signals.DirectoryAdjust += srcLibAppBoost
	}
	if pathMatchesQueryTokens(path, queryTokens) {
		hit.Score += queryTokenPathBoost
		hit.Signals.DirectoryAdjust += queryTokenPathBoost
	}

	if hit.Symbol.Exported {
		hit.Score += exportBoost
		hit.Signals.ExportBoost = exportBoost
	}
}

// applyIntentMultiplier is signal stage 2.
func applyIntentMultiplier(hit *Hit, intent Intent, queryTokens []string) {
	mult := 1.0
	switch intent {
	case IntentDefinition:
		mult = intentDefinitionMult
	case IntentTest:
		mult = intentTestMult
	case IntentSchema:
		if pathMatchesQueryTokens(hit.Symbol.FilePath, queryTokens) || pathMatchesQueryTokens(strings.ToLower(hit.Symbol.Name), queryTokens) {
			mult = intentSchemaMultHigh
		} else {
			mult = intentSchemaMultLow
		}
	}
	hit.Score *= mult
	hit.Signals.IntentMult = mult
}

// applyPopularitySignal is signal stage 3: incoming-edge-count popularity,
// superseded by normalized PageRank when available.
func applyPopularitySignal(hit *Hit, metrics *store.SymbolMetrics, weight, popularityCap float64) {
	if metrics == nil {
		return
	}
	var boost float64
	if metrics.NormalizedPageRank > 0 {
		boost = weight * metrics.NormalizedPageRank
	} else {
		count := float64(metrics.PopularityCount)
		if count > popularityCap {
			count = popularityCap
		}
		boost = weight * count
	}
	hit.Score += boost
	hit.Signals.PopularityBoost = boost
}

// applyDocumentationBoost is signal stage 4.
func applyDocumentationBoost(hit *Hit, doc *store.Docstring) {
	if doc == nil || doc.Summary == "" {
		return
	}
	hit.Score *= docBoostFactor
	hit.Signals.DocBoost = docBoostFactor
}

// applyLearningBoost is signal stage 5 (spec.md §4.7.1). Disabled by
// default; callers pass zero contributions and skip the lookups entirely
// when learning is off.
func applyLearningBoost(hit *Hit, selectionBoost, affinityBoost float64) {
	hit.Score += selectionBoost + affinityBoost
	hit.Signals.SelectionBoost = selectionBoost
	hit.Signals.AffinityBoost = affinityBoost
}

// SelectionBoostContribution computes one past-selection's contribution:
// config.selection_boost * position_discount * time_decay.
func SelectionBoostContribution(configBoost float64, position int, ageDays float64) float64 {
	positionDiscount := 1.0 / math.Log(float64(position)+2)
	timeDecay := math.Exp(-0.1 * ageDays)
	return configBoost * positionDiscount * timeDecay
}

// FileAffinityContribution computes one file's affinity contribution:
// config.affinity_boost * min(raw/10, 1.0) * exp(-0.05 * age_days), where
// raw = view_count + 2*edit_count.
func FileAffinityContribution(configBoost float64, affinity *store.FileAffinity, now time.Time) float64 {
	if affinity == nil {
		return 0
	}
	raw := float64(affinity.ViewCount + 2*affinity.EditCount)
	scaled := raw / 10
	if scaled > 1.0 {
		scaled = 1.0
	}
	ageDays := now.Sub(affinity.LastAccessedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return configBoost * scaled * math.Exp(-0.05*ageDays)
}

// applyPackageBoost is signal stage 6: multiplies same-package hits by an
// intent-dependent factor when a package context is present.
func applyPackageBoost(hit *Hit, intent Intent, controlPackageID string) {
	if controlPackageID == "" || hit.Symbol.PackageID != controlPackageID {
		return
	}
	var mult float64
	switch intent {
	case IntentDefinition, IntentCallers:
		mult = packageBoostPrimary
	case IntentError:
		mult = packageBoostError
	default:
		mult = packageBoostDefault
	}
	hit.Score *= mult
	hit.Signals.PackageBoost = mult
}

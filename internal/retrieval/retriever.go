package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// Search runs the full pipeline described in spec.md §4.7: parse, decompose,
// per-source fan-out, unified RRF fusion, reranking, the six-stage signal
// pipeline, diversification, and top-N selection.
func (r *Retriever) Search(ctx context.Context, req Request) (*Result, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	pq := ParseQuery(req.Query)

	cacheIn := cacheKeyInputs{
		NormalizedQuery: pq.Normalized,
		Intent:          pq.Intent,
		MaxTokens:       limit,
		Weights:         Weights{Keyword: r.cfg.RRFWeightKeyword, Vector: r.cfg.RRFWeightVector, Graph: r.cfg.RRFWeightGraph},
		RerankerWeight:  r.cfg.RerankerWeight,
		LearningEnabled: r.cfg.LearningEnabled,
		ControlPackage:  pq.Controls.Package,
	}
	if cached, ok := r.resultCache.Get(cacheIn); ok {
		return cached, nil
	}

	var subs []SubQuery
	if r.decomposer.ShouldDecompose(pq.Normalized) {
		subs = r.decomposer.Decompose(pq.Normalized)
	} else {
		subs = []SubQuery{{Query: pq.Normalized, Weight: 1.0}}
	}

	var adjacency *graph.Adjacency
	if pq.Intent == IntentCallers || pq.Intent == IntentDefinition {
		edges, err := r.metadata.AllEdges(ctx)
		if err == nil {
			adjacency = graph.Build(edges)
		}
	}

	var allLists []RankedList
	for _, sub := range subs {
		lists, err := r.retrieveSubQuery(ctx, sub, pq, adjacency)
		if err != nil {
			return nil, err
		}
		allLists = append(allLists, lists...)
	}

	var fused []*FusedHit
	if r.cfg.RRFEnabled {
		fused = FuseRRF(allLists, r.cfg.RRFK)
	} else {
		fused = FuseHybridAlpha(allLists, r.cfg.HybridAlpha)
	}
	if len(fused) > r.cfg.RerankerTopK*4 {
		fused = fused[:r.cfg.RerankerTopK*4]
	}

	hits, err := r.hydrateHits(ctx, fused)
	if err != nil {
		return nil, err
	}

	r.applyReranking(ctx, hits, pq.Normalized)

	queryTokens := strings.Fields(pq.Normalized)
	r.applySignals(ctx, hits, pq, queryTokens)

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	hits = diversify(hits, limit)

	result := &Result{Hits: hits, Intent: pq.Intent, Query: pq}
	r.resultCache.Put(cacheIn, result)
	return result, nil
}

// applyReranking blends the reranker's cross-encoder score with the
// pre-rerank base score at a fixed weight; it never trusts the reranker
// alone, per modeladapter.Reranker's contract.
func (r *Retriever) applyReranking(ctx context.Context, hits []*Hit, query string) {
	if r.reranker == nil || len(hits) == 0 || !r.reranker.Available(ctx) {
		return
	}

	topN := r.cfg.RerankerTopK
	if topN > len(hits) {
		topN = len(hits)
	}
	docs := make([]string, topN)
	for i := 0; i < topN; i++ {
		docs[i] = hits[i].Symbol.Signature
	}

	results, err := r.reranker.Rerank(ctx, query, docs, topN)
	if err != nil {
		return
	}

	for _, rr := range results {
		if rr.Index < 0 || rr.Index >= topN {
			continue
		}
		h := hits[rr.Index]
		h.Score = r.cfg.RerankerWeight*rr.Score + (1-r.cfg.RerankerWeight)*h.Score
		h.Signals.RerankerScore = rr.Score
		h.Signals.RerankerApplied = true
	}
}

// applySignals runs the six-stage signal pipeline in spec.md §4.7 step 6's
// strict order against every hit.
func (r *Retriever) applySignals(ctx context.Context, hits []*Hit, pq ParsedQuery, queryTokens []string) {
	if len(hits) == 0 {
		return
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Symbol.ID
	}
	metrics, _ := r.metadata.GetMetrics(ctx, ids)

	controlPackageID := r.resolveControlPackage(ctx, pq, hits)

	for _, h := range hits {
		applyStructuralSignals(h, pq.Intent, queryTokens)
		applyIntentMultiplier(h, pq.Intent, queryTokens)
		applyPopularitySignal(h, metrics[h.Symbol.ID], r.cfg.PopularityWeight, r.cfg.PopularityCap)

		doc, _ := r.metadata.GetDocstring(ctx, h.Symbol.ID)
		applyDocumentationBoost(h, doc)

		var selBoost, affBoost float64
		if r.cfg.LearningEnabled {
			selBoost = r.learningSelectionBoost(ctx, pq.Normalized, h.Symbol.ID)
			affBoost = r.learningFileAffinityBoost(ctx, h.Symbol.FilePath)
		}
		applyLearningBoost(h, selBoost, affBoost)

		applyPackageBoost(h, pq.Intent, controlPackageID)
	}
}

// resolveControlPackage returns the package id to match for the package
// boost stage: the explicit pkg: control if present, otherwise the top
// hit's package (inferred context), otherwise empty (no boost).
func (r *Retriever) resolveControlPackage(ctx context.Context, pq ParsedQuery, hits []*Hit) string {
	if pq.Controls.Package != "" {
		pkg, err := r.metadata.GetPackageForFile(ctx, pq.Controls.Package)
		if err == nil && pkg != nil {
			return pkg.ID
		}
		return ""
	}
	if len(hits) == 0 {
		return ""
	}
	return hits[0].Symbol.PackageID
}

// learningSelectionBoost sums SelectionBoostContribution over every past
// selection of symbolID for this normalized query.
func (r *Retriever) learningSelectionBoost(ctx context.Context, normalized, symbolID string) float64 {
	sels, err := r.metadata.GetSelectionsForNormalizedQuery(ctx, normalized, 20)
	if err != nil {
		return 0
	}
	var total float64
	now := r.now()
	for _, sel := range sels {
		if sel.SelectedSymbolID != symbolID {
			continue
		}
		ageDays := now.Sub(sel.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		total += SelectionBoostContribution(r.cfg.LearningSelectionBoost, sel.Position, ageDays)
	}
	return total
}

func (r *Retriever) learningFileAffinityBoost(ctx context.Context, filePath string) float64 {
	affinity, err := r.metadata.GetFileAffinity(ctx, filePath)
	if err != nil || affinity == nil {
		return 0
	}
	return FileAffinityContribution(r.cfg.LearningFileAffinityBoost, affinity, r.now())
}

// diversity key groups hits whose name+kind collide, treating them as
// near-duplicates (e.g. same-named functions defined in different files);
// the highest-scored representative of each group survives.
func diversityKey(h *Hit) string {
	return strings.ToLower(h.Symbol.Name) + "|" + string(h.Symbol.Kind)
}

// diversify collapses near-duplicate hits and returns the top limit
// representatives, highest score first.
func diversify(hits []*Hit, limit int) []*Hit {
	best := make(map[string]*Hit)
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		key := diversityKey(h)
		if existing, ok := best[key]; !ok || h.Score > existing.Score {
			if !ok {
				order = append(order, key)
			}
			best[key] = h
		}
	}

	deduped := make([]*Hit, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, best[key])
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Score > deduped[j].Score })

	if limit > 0 && limit < len(deduped) {
		deduped = deduped[:limit]
	}
	return deduped
}

// RecordSelection persists the user's chosen symbol for a query, feeding
// the learning boost in future searches for the same normalized query.
func (r *Retriever) RecordSelection(ctx context.Context, query string, symbolID string, position int) error {
	pq := ParseQuery(query)
	return r.metadata.RecordSelection(ctx, &store.QuerySelection{
		QueryText:        pq.Raw,
		QueryNormalized:  pq.Normalized,
		SelectedSymbolID: symbolID,
		Position:         position,
		CreatedAt:        r.now(),
	})
}

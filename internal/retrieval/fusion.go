package retrieval

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter, k=60,
// matching the teacher's RRFFusion default (used by Azure AI Search,
// OpenSearch, and empirically validated across domains).
const DefaultRRFConstant = 60

// RankedList is one per-(source, sub-query) ranked candidate list feeding
// fusion. IDs are ordered best-to-worst; rank is 1-indexed by position.
type RankedList struct {
	Source string // "keyword", "vector", "graph"
	Weight float64
	IDs    []string
}

// FusedHit is one symbol's fused score plus the per-source ranks it
// contributed from, for HitSignals/explain_search transparency.
type FusedHit struct {
	SymbolID    string
	Score       float64
	SourceRanks map[string]int
}

// FuseRRF applies Reciprocal Rank Fusion over every (source, sub-query)
// ranked list at once — spec.md §4.7 step 4's "unified RRF... over the
// combined set of (source, sub_query) ranking positions, not nested RRF" —
// generalizing the teacher's two-list RRFFusion.Fuse (bm25 + vector) to an
// arbitrary number of named lists sharing one scoring pass.
func FuseRRF(lists []RankedList, k int) []*FusedHit {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[string]*FusedHit)
	get := func(id string) *FusedHit {
		if h, ok := scores[id]; ok {
			return h
		}
		h := &FusedHit{SymbolID: id, SourceRanks: make(map[string]int)}
		scores[id] = h
		return h
	}

	for _, list := range lists {
		for i, id := range list.IDs {
			rank := i + 1
			hit := get(id)
			hit.Score += list.Weight / float64(k+rank)
			if existing, ok := hit.SourceRanks[list.Source]; !ok || rank < existing {
				hit.SourceRanks[list.Source] = rank
			}
		}
	}

	results := make([]*FusedHit, 0, len(scores))
	for _, h := range scores {
		results = append(results, h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if len(results[i].SourceRanks) != len(results[j].SourceRanks) {
			return len(results[i].SourceRanks) > len(results[j].SourceRanks)
		}
		return results[i].SymbolID < results[j].SymbolID
	})

	normalizeScores(results)
	return results
}

// FuseHybridAlpha blends per-source rank-derived scores with a fixed
// vector/keyword weight instead of RRF — spec.md §6 documents hybrid_alpha
// as a sibling knob to rrf_enabled, so when RRF is turned off this is the
// fallback fusion mode. Graph lists still contribute at their configured
// RRF-style weight since alpha only governs the vector/keyword split.
func FuseHybridAlpha(lists []RankedList, alpha float64) []*FusedHit {
	scores := make(map[string]*FusedHit)
	get := func(id string) *FusedHit {
		if h, ok := scores[id]; ok {
			return h
		}
		h := &FusedHit{SymbolID: id, SourceRanks: make(map[string]int)}
		scores[id] = h
		return h
	}

	for _, list := range lists {
		n := len(list.IDs)
		if n == 0 {
			continue
		}
		var sourceWeight float64
		switch list.Source {
		case "vector":
			sourceWeight = alpha
		case "keyword":
			sourceWeight = 1 - alpha
		default:
			sourceWeight = list.Weight
		}
		for i, id := range list.IDs {
			rank := i + 1
			rankScore := 1 - float64(i)/float64(n) // linear 1.0 (best) -> ~0 (worst)
			hit := get(id)
			hit.Score += sourceWeight * rankScore
			if existing, ok := hit.SourceRanks[list.Source]; !ok || rank < existing {
				hit.SourceRanks[list.Source] = rank
			}
		}
	}

	results := make([]*FusedHit, 0, len(scores))
	for _, h := range scores {
		results = append(results, h)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SymbolID < results[j].SymbolID
	})
	return results
}

func normalizeScores(results []*FusedHit) {
	if len(results) == 0 || results[0].Score == 0 {
		return
	}
	max := results[0].Score
	for _, r := range results {
		r.Score /= max
	}
}

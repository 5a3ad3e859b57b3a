package graph

import "github.com/iceinvein/code-intelligence-mcp-server/internal/store"

const (
	// DefaultDamping is the PageRank damping factor.
	DefaultDamping = 0.85
	// DefaultIterations is the fixed iteration count run per full index,
	// rather than iterating to a convergence threshold.
	DefaultIterations = 20
)

// PageRankResult holds both the raw and max-normalized score for a symbol.
type PageRankResult struct {
	Score           float64
	NormalizedScore float64
}

// PageRank computes per-symbol importance over the full edge set, once per
// full index round. It excludes synthetic file-root symbols from the node
// set entirely (they fan out to every import in a file and would dominate
// the ranking with no semantic content of their own), and iterates over the
// full edge list a fixed number of times rather than recursing or iterating
// to convergence.
//
// symbolKinds must carry every symbol's kind so file-root nodes can be
// excluded; edges may freely reference file-root ids as sources (e.g. import
// edges) — those contributions are simply never counted as score mass on a
// node that doesn't exist in the ranked set.
func PageRank(edges []*store.Edge, symbolKinds map[string]store.SymbolKind, damping float64, iterations int) map[string]PageRankResult {
	if damping <= 0 {
		damping = DefaultDamping
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	nodes := make([]string, 0, len(symbolKinds))
	for id, kind := range symbolKinds {
		if kind == store.KindFileRoot {
			continue
		}
		nodes = append(nodes, id)
	}
	if len(nodes) == 0 {
		return map[string]PageRankResult{}
	}

	rankable := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		rankable[id] = true
	}

	outDegree := make(map[string]int, len(nodes))
	var outEdges []*store.Edge
	for _, e := range edges {
		if !rankable[e.FromSymbolID] || !rankable[e.ToSymbolID] {
			continue
		}
		if e.FromSymbolID == e.ToSymbolID {
			continue
		}
		outEdges = append(outEdges, e)
		outDegree[e.FromSymbolID]++
	}

	n := float64(len(nodes))
	base := (1 - damping) / n

	scores := make(map[string]float64, len(nodes))
	for _, id := range nodes {
		scores[id] = 1.0 / n
	}

	for iter := 0; iter < iterations; iter++ {
		next := make(map[string]float64, len(nodes))
		for _, id := range nodes {
			next[id] = base
		}

		for _, e := range outEdges {
			d := outDegree[e.FromSymbolID]
			if d == 0 {
				continue
			}
			next[e.ToSymbolID] += damping * scores[e.FromSymbolID] / float64(d)
		}

		// Dangling nodes (no outgoing edges within the ranked set)
		// redistribute their mass evenly, the standard PageRank treatment,
		// so rank doesn't leak out of the system.
		var danglingMass float64
		for _, id := range nodes {
			if outDegree[id] == 0 {
				danglingMass += scores[id]
			}
		}
		if danglingMass > 0 {
			share := damping * danglingMass / n
			for _, id := range nodes {
				next[id] += share
			}
		}

		scores = next
	}

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	results := make(map[string]PageRankResult, len(nodes))
	for _, id := range nodes {
		s := scores[id]
		norm := 0.0
		if maxScore > 0 {
			norm = s / maxScore
		}
		results[id] = PageRankResult{Score: s, NormalizedScore: norm}
	}
	return results
}

// Package graph implements the Graph Engine (C6): pure-function traversals
// and PageRank over the edge set produced by the Metadata Store. Every
// function here is a pure transform over an in-memory adjacency view — no
// store access, no I/O — so it can be rebuilt per call or cached by the
// caller.
package graph

import "github.com/iceinvein/code-intelligence-mcp-server/internal/store"

// Direction selects which way a traversal follows edges.
type Direction string

const (
	// Upstream follows reverse edges: "who points at me".
	Upstream Direction = "upstream"
	// Downstream follows forward edges: "what I point at".
	Downstream Direction = "downstream"
)

// Hit is one traversal result: a reached symbol id, the depth it was found
// at, and the edge evidence (file/line, occurrence count) connecting it to
// its parent in the traversal.
type Hit struct {
	SymbolID      string
	Depth         int
	Kind          store.EdgeKind
	AtFile        string
	AtLine        int
	EvidenceCount int
}

// Adjacency is a prebuilt view over an edge set, indexed both forward
// (from -> edges) and reverse (to -> edges) so Upstream/Downstream
// traversals are both O(1) per hop regardless of edge set size.
type Adjacency struct {
	forward map[string][]*store.Edge
	reverse map[string][]*store.Edge
}

// Build indexes edges into an Adjacency view. Call once per full edge set
// (e.g. once per index round) and reuse across queries, or wrap with an LRU
// keyed on a cheap edge-set version stamp if edges change frequently.
func Build(edges []*store.Edge) *Adjacency {
	a := &Adjacency{
		forward: make(map[string][]*store.Edge),
		reverse: make(map[string][]*store.Edge),
	}
	for _, e := range edges {
		a.forward[e.FromSymbolID] = append(a.forward[e.FromSymbolID], e)
		a.reverse[e.ToSymbolID] = append(a.reverse[e.ToSymbolID], e)
	}
	return a
}

func (a *Adjacency) edgesFrom(symbolID string, dir Direction) []*store.Edge {
	if dir == Upstream {
		return a.reverse[symbolID]
	}
	return a.forward[symbolID]
}

// neighbor returns the node on the far side of e relative to traversal
// direction dir.
func neighbor(e *store.Edge, dir Direction) string {
	if dir == Upstream {
		return e.FromSymbolID
	}
	return e.ToSymbolID
}

func kindSet(kinds []store.EdgeKind) map[store.EdgeKind]bool {
	set := make(map[store.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

package graph

import "github.com/iceinvein/code-intelligence-mcp-server/internal/store"

var callKinds = []store.EdgeKind{store.EdgeCall}
var typeKinds = []store.EdgeKind{store.EdgeTypeExtends, store.EdgeTypeImplements, store.EdgeTypeAlias}
var dependencyKinds = []store.EdgeKind{store.EdgeImport, store.EdgeReference}
var dataFlowKinds = []store.EdgeKind{store.EdgeRead, store.EdgeWrite}

// CallHierarchy walks call edges from symbolID, up to maxDepth hops, in the
// given direction (Upstream = callers, Downstream = callees).
func (a *Adjacency) CallHierarchy(symbolID string, dir Direction, maxDepth int) []Hit {
	return a.traverse(symbolID, dir, maxDepth, callKinds)
}

// TypeGraph walks type_extends/type_implements/type_alias edges from
// symbolID, up to maxDepth hops. Direction is always Downstream: from a type
// to what it extends/implements/aliases.
func (a *Adjacency) TypeGraph(symbolID string, maxDepth int) []Hit {
	return a.traverse(symbolID, Downstream, maxDepth, typeKinds)
}

// DependencyGraph walks import/reference edges from a file or symbol id, up
// to maxDepth hops, in the given direction.
func (a *Adjacency) DependencyGraph(fileOrSymbolID string, dir Direction, maxDepth int) []Hit {
	return a.traverse(fileOrSymbolID, dir, maxDepth, dependencyKinds)
}

// DataFlow walks read/write edges from symbolID, up to maxDepth hops, in the
// given direction.
func (a *Adjacency) DataFlow(symbolID string, dir Direction, maxDepth int) []Hit {
	return a.traverse(symbolID, dir, maxDepth, dataFlowKinds)
}

// traverse is the shared BFS-style walk behind every public traversal: a
// visited set guards against diamond/cyclic graphs, an explicit depth limit
// bounds work, and each hit carries the edge evidence (file/line, occurrence
// count) that connected it. No recursion — the frontier is an explicit
// queue, matching PageRank's own non-recursive edge-list iteration.
func (a *Adjacency) traverse(startID string, dir Direction, maxDepth int, kinds []store.EdgeKind) []Hit {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	allowed := kindSet(kinds)

	visited := map[string]bool{startID: true}
	type frontierNode struct {
		id    string
		depth int
	}
	frontier := []frontierNode{{id: startID, depth: 0}}

	var hits []Hit
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.depth >= maxDepth {
			continue
		}

		// Group edges to the same neighbor so evidence count reflects the
		// number of occurrences, not one Hit per edge row.
		byNeighbor := make(map[string][]*store.Edge)
		var order []string
		for _, e := range a.edgesFrom(cur.id, dir) {
			if !allowed[e.Kind] {
				continue
			}
			nb := neighbor(e, dir)
			if _, seen := byNeighbor[nb]; !seen {
				order = append(order, nb)
			}
			byNeighbor[nb] = append(byNeighbor[nb], e)
		}

		for _, nb := range order {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			edges := byNeighbor[nb]
			first := edges[0]
			hits = append(hits, Hit{
				SymbolID:      nb,
				Depth:         cur.depth + 1,
				Kind:          first.Kind,
				AtFile:        first.AtFile,
				AtLine:        first.AtLine,
				EvidenceCount: len(edges),
			})
			frontier = append(frontier, frontierNode{id: nb, depth: cur.depth + 1})
		}
	}

	return hits
}

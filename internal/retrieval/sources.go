package retrieval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
)

// retrieveSubQuery runs one sub-query against every applicable source
// concurrently (keyword always; vector when the embedder is available;
// graph when intent suggests a structural neighborhood matters), grounded
// on the teacher engine.go's concurrent BM25+vector fan-out generalized to
// a third source.
func (r *Retriever) retrieveSubQuery(ctx context.Context, sub SubQuery, pq ParsedQuery, adjacency *graph.Adjacency) ([]RankedList, error) {
	var (
		lists    []RankedList
		keywordL RankedList
		vectorL  RankedList
		graphL   RankedList
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := r.keyword.Search(gctx, ExpandSynonyms(sub.Query), r.cfg.VectorSearchLimit)
		if err != nil {
			return err
		}
		ids := make([]string, len(res))
		for i, hit := range res {
			ids[i] = hit.SymbolID
		}
		keywordL = RankedList{Source: "keyword", Weight: sub.Weight * r.cfg.RRFWeightKeyword, IDs: ids}
		return nil
	})

	if r.embedder != nil && r.embedder.Available(ctx) {
		g.Go(func() error {
			vec, err := r.embedder.Embed(gctx, sub.Query)
			if err != nil {
				return err
			}
			res, err := r.vector.KNN(gctx, vec, r.cfg.VectorSearchLimit, nil)
			if err != nil {
				return err
			}
			ids := make([]string, len(res))
			for i, hit := range res {
				ids[i] = hit.ID
			}
			vectorL = RankedList{Source: "vector", Weight: sub.Weight * r.cfg.RRFWeightVector, IDs: ids}
			return nil
		})
	}

	if adjacency != nil && (pq.Intent == IntentCallers || pq.Intent == IntentDefinition) {
		g.Go(func() error {
			ids, err := r.graphNeighborhood(gctx, sub, pq, adjacency)
			if err != nil {
				return err
			}
			graphL = RankedList{Source: "graph", Weight: sub.Weight * r.cfg.RRFWeightGraph, IDs: ids}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(keywordL.IDs) > 0 {
		lists = append(lists, keywordL)
	}
	if len(vectorL.IDs) > 0 {
		lists = append(lists, vectorL)
	}
	if len(graphL.IDs) > 0 {
		lists = append(lists, graphL)
	}
	return lists, nil
}

// graphNeighborhood resolves the query's named symbol by exact name match
// (the caller name for Callers intent, the sub-query text otherwise) and
// returns the symbols reached within two traversal hops, nearest first.
func (r *Retriever) graphNeighborhood(ctx context.Context, sub SubQuery, pq ParsedQuery, adjacency *graph.Adjacency) ([]string, error) {
	name := pq.CallerName
	if name == "" {
		name = sub.Query
	}

	candidates, err := r.metadata.FindSymbolsByName(ctx, name, 5)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	dir := graph.Downstream
	if pq.Intent == IntentCallers {
		dir = graph.Upstream
	}

	var ids []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		hits := adjacency.CallHierarchy(c.ID, dir, 2)
		for _, h := range hits {
			if seen[h.SymbolID] {
				continue
			}
			seen[h.SymbolID] = true
			ids = append(ids, h.SymbolID)
		}
	}
	return ids, nil
}

// hydrateHits loads full Symbol records for a fused id list, dropping any
// id whose symbol has since been deleted (a stale index entry).
func (r *Retriever) hydrateHits(ctx context.Context, fused []*FusedHit) ([]*Hit, error) {
	hits := make([]*Hit, 0, len(fused))
	for _, f := range fused {
		sym, err := r.metadata.GetSymbol(ctx, f.SymbolID)
		if err != nil || sym == nil {
			continue
		}
		sources := make(map[string]int, len(f.SourceRanks))
		for k, v := range f.SourceRanks {
			sources[k] = v
		}
		hits = append(hits, &Hit{
			Symbol:  sym,
			Score:   f.Score,
			Sources: sources,
		})
	}
	return hits, nil
}

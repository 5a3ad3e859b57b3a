package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/parse"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/watcher"
)

// fileExtraction is one file's Parse+Extract output, produced by the bounded
// worker pool (Run's Scan/Parse/Extract stages run concurrently) and handed
// to the single sequential consumer that does everything touching storage,
// so the MetadataStore's single-writer rule (spec.md Section 3) holds
// without an extra lock at this layer.
type fileExtraction struct {
	path   string
	sr     ScanResult
	result *store.ExtractionResult
	edges  []*parse.ProvisionalEdge
	skip   bool
	err    error
}

// Run performs a full index pass over Config.RootDir: Scan, then a bounded
// worker pool runs Parse+Extract concurrently per spec.md §4.5 steps 2-4,
// while edge resolution, storage commit, and embedding happen sequentially
// in one consumer.
func (ix *Indexer) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	absRoot, err := filepath.Abs(ix.cfg.RootDir)
	if err != nil {
		return nil, err
	}
	ix.absRoot = absRoot
	ensureRepository(ctx, ix.metadata, absRoot)

	if err := ix.checkResumeGuard(ctx); err != nil {
		slog.Warn("discarding stale checkpoint", slog.String("error", err.Error()))
	}

	fingerprints, err := ix.metadata.ListFingerprints(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(fingerprints))
	var seenMu sync.Mutex

	scanned, err := ix.scan(ctx)
	if err != nil {
		return nil, err
	}

	results := make(chan fileExtraction, ix.cfg.Workers*2)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)

	var inFlight sync.WaitGroup
	go func() {
		for sr := range scanned {
			sr := sr
			seenMu.Lock()
			seen[sr.RelPath] = true
			seenMu.Unlock()
			stats.FilesScanned++

			inFlight.Add(1)
			g.Go(func() error {
				defer inFlight.Done()
				fe := ix.runExtraction(gctx, sr)
				select {
				case results <- fe:
				case <-gctx.Done():
				}
				return nil
			})
		}
		inFlight.Wait()
		close(results)
	}()

	ix.notify("indexing", 0, 0)
	count := 0
	var pendingCheckpoint int
	for fe := range results {
		count++
		ix.notify("indexing", count, 0)

		if fe.err != nil {
			stats.Errors = append(stats.Errors, FileError{Path: fe.path, Err: fe.err})
			stats.FilesSkipped++
			continue
		}
		if fe.skip || fe.result == nil {
			stats.FilesSkipped++
			continue
		}
		if err := ix.commitFile(ctx, fe); err != nil {
			stats.Errors = append(stats.Errors, FileError{Path: fe.path, Err: err})
			stats.FilesSkipped++
			continue
		}
		stats.FilesIndexed++
		stats.SymbolsIndexed += len(fe.result.Symbols)
		stats.EdgesResolved += len(fe.result.Edges)

		pendingCheckpoint++
		if pendingCheckpoint >= 50 {
			ix.saveCheckpoint(ctx, "parsing", count, stats.SymbolsIndexed)
			pendingCheckpoint = 0
		}
	}

	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return stats, ctx.Err()
	}

	for path := range fingerprints {
		if !seen[path] {
			var staleIDs []string
			if syms, err := ix.metadata.GetSymbolsByFile(ctx, path); err == nil {
				for _, s := range syms {
					staleIDs = append(staleIDs, s.ID)
				}
			}
			if err := ix.metadata.DeleteFile(ctx, path); err != nil {
				slog.Warn("failed to delete stale file", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			if err := ix.keyword.Delete(ctx, staleIDs); err != nil {
				slog.Warn("keyword delete failed for stale file", slog.String("path", path), slog.String("error", err.Error()))
			}
		}
	}

	ix.notify("pagerank", 0, 0)
	ix.saveCheckpoint(ctx, "pagerank", count, stats.SymbolsIndexed)
	if err := ix.runPageRank(ctx); err != nil {
		slog.Warn("pagerank pass failed", slog.String("error", err.Error()))
	}

	if err := ix.metadata.ClearCheckpoint(ctx); err != nil {
		slog.Warn("failed to clear checkpoint", slog.String("error", err.Error()))
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// runExtraction reads one scanned file, applies the fingerprint fast path,
// and runs Parse+Extract if the file actually changed. It performs no
// storage writes so it's safe to call from the bounded worker pool.
func (ix *Indexer) runExtraction(ctx context.Context, sr ScanResult) fileExtraction {
	content, err := os.ReadFile(sr.AbsPath)
	if err != nil {
		return fileExtraction{path: sr.RelPath, err: fmt.Errorf("read file: %w", err)}
	}

	if fp, ok, _ := ix.metadata.GetFingerprint(ctx, sr.RelPath); ok && unchanged(fp, sr.Size, sr.ModTime, content) {
		return fileExtraction{path: sr.RelPath, skip: true}
	}

	result, edges, err := ix.extractFile(ctx, sr, content)
	if err != nil {
		return fileExtraction{path: sr.RelPath, err: err}
	}
	if result == nil {
		return fileExtraction{path: sr.RelPath, skip: true}
	}
	return fileExtraction{path: sr.RelPath, sr: sr, result: result, edges: edges}
}

// commitFile resolves a file's edges and writes everything it produced to
// the three storage contracts: the transactional metadata upsert, the
// keyword index, then the embedding/vector upsert, in that order so a
// failure partway still leaves the metadata store as the source of truth.
func (ix *Indexer) commitFile(ctx context.Context, fe fileExtraction) error {
	if ix.cfg.PackageDetection {
		if pkg := detectPackage(ix.absRoot, fe.path); pkg != nil {
			if err := ix.metadata.SavePackage(ctx, pkg); err == nil {
				for _, s := range fe.result.Symbols {
					s.PackageID = pkg.ID
				}
			}
		}
	}

	fe.result.Edges = ix.resolveEdges(ctx, fe.path, fe.result.Symbols, fe.edges)

	if err := ix.metadata.UpsertFile(ctx, fe.result); err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}

	docs := make(map[string]*store.Docstring, len(fe.result.Docstrings))
	for _, d := range fe.result.Docstrings {
		docs[d.SymbolID] = d
	}

	kwDocs := make([]*store.KeywordDoc, 0, len(fe.result.Symbols))
	for _, s := range fe.result.Symbols {
		if s.Kind == store.KindFileRoot {
			continue
		}
		body := s.Signature
		if d, ok := docs[s.ID]; ok && d.Summary != "" {
			body = body + "\n" + d.Summary
		}
		kwDocs = append(kwDocs, &store.KeywordDoc{
			SymbolID: s.ID,
			Name:     s.Name,
			FilePath: s.FilePath,
			Kind:     string(s.Kind),
			Exported: s.Exported,
			Body:     body,
		})
	}
	if len(kwDocs) > 0 {
		if err := ix.keyword.Index(ctx, kwDocs); err != nil {
			return fmt.Errorf("keyword index: %w", err)
		}
	}

	records, err := ix.embedSymbols(ctx, fe.result.Symbols, docs)
	if err != nil {
		return fmt.Errorf("embed symbols: %w", err)
	}
	if len(records) > 0 {
		if err := ix.vector.Upsert(ctx, records); err != nil {
			return fmt.Errorf("vector upsert: %w", err)
		}
	}

	return nil
}

// checkResumeGuard compares a persisted checkpoint's embedder model against
// the active one: a model swap between runs invalidates any half-built
// vector state, so a mismatched checkpoint is discarded rather than resumed
// from (a stale resume would otherwise mix two embedding spaces silently).
func (ix *Indexer) checkResumeGuard(ctx context.Context) error {
	cp, err := ix.metadata.LoadCheckpoint(ctx)
	if err != nil || cp == nil {
		return nil
	}
	if cp.EmbedderModel != "" && cp.EmbedderModel != ix.embedder.ModelName() {
		return ix.metadata.ClearCheckpoint(ctx)
	}
	return nil
}

func (ix *Indexer) saveCheckpoint(ctx context.Context, stage string, done, embedded int) {
	cp := &store.IndexCheckpoint{
		Stage:         stage,
		Total:         done,
		EmbeddedCount: embedded,
		EmbedderModel: ix.embedder.ModelName(),
		UpdatedAt:     time.Now(),
	}
	if err := ix.metadata.SaveCheckpoint(ctx, cp); err != nil {
		slog.Warn("failed to save checkpoint", slog.String("error", err.Error()))
	}
}

// runPageRank recomputes centrality over the full edge set and persists
// per-symbol metrics, spec.md §4.5 step 8: run once per full index, never
// incrementally per file.
func (ix *Indexer) runPageRank(ctx context.Context) error {
	edges, err := ix.metadata.AllEdges(ctx)
	if err != nil {
		return err
	}

	ids, err := ix.metadata.ListAllSymbolIDs(ctx)
	if err != nil {
		return err
	}

	kinds := make(map[string]store.SymbolKind, len(ids))
	for _, id := range ids {
		sym, err := ix.metadata.GetSymbol(ctx, id)
		if err != nil || sym == nil {
			continue
		}
		kinds[id] = sym.Kind
	}

	results := graph.PageRank(edges, kinds, ix.cfg.PageRankDamping, ix.cfg.PageRankIters)

	popularity := make(map[string]int, len(edges))
	for _, e := range edges {
		popularity[e.ToSymbolID]++
	}

	metrics := make([]*store.SymbolMetrics, 0, len(results))
	for id, r := range results {
		metrics = append(metrics, &store.SymbolMetrics{
			SymbolID:           id,
			PageRank:           r.Score,
			NormalizedPageRank: r.NormalizedScore,
			PopularityCount:    popularity[id],
		})
	}

	return ix.metadata.SetMetrics(ctx, metrics)
}

// HandleEvents applies a batch of debounced filesystem events from watch
// mode incrementally: each created/modified file is re-extracted and
// committed exactly like a full Run's per-file path, and deleted files
// cascade out of all three storage contracts. Unlike Run, this never
// triggers a PageRank pass — centrality is a whole-graph statistic, and
// recomputing it after every keystroke-sized batch would be both wasteful
// and give a misleading sense of freshness; callers that need fresh
// centrality after a watch session should run a full Run.
func (ix *Indexer) HandleEvents(ctx context.Context, events []watcher.FileEvent) error {
	if ix.absRoot == "" {
		absRoot, err := filepath.Abs(ix.cfg.RootDir)
		if err != nil {
			return err
		}
		ix.absRoot = absRoot
	}

	for _, ev := range events {
		if ev.IsDir {
			continue
		}
		relPath := filepath.ToSlash(ev.Path)

		if ev.Operation == watcher.OpDelete || ev.Operation == watcher.OpRename {
			if syms, err := ix.metadata.GetSymbolsByFile(ctx, relPath); err == nil && len(syms) > 0 {
				ids := make([]string, 0, len(syms))
				for _, s := range syms {
					ids = append(ids, s.ID)
				}
				_ = ix.keyword.Delete(ctx, ids)
				_ = ix.vector.Delete(ctx, ids)
			}
		}

		switch ev.Operation {
		case watcher.OpDelete:
			if err := ix.metadata.DeleteFile(ctx, relPath); err != nil {
				slog.Warn("failed to delete file on watch event", slog.String("path", relPath), slog.String("error", err.Error()))
			}
			continue
		case watcher.OpRename:
			if err := ix.metadata.DeleteFile(ctx, relPath); err != nil {
				slog.Warn("failed to delete renamed-away file", slog.String("path", relPath), slog.String("error", err.Error()))
			}
		}

		absPath := filepath.Join(ix.absRoot, relPath)
		info, err := os.Stat(absPath)
		if err != nil {
			continue
		}
		if info.Size() > ix.cfg.MaxFileSize {
			continue
		}

		sr := ScanResult{RelPath: relPath, AbsPath: absPath, Size: info.Size(), ModTime: info.ModTime().UnixNano()}
		fe := ix.runExtraction(ctx, sr)
		if fe.err != nil {
			slog.Warn("extraction failed on watch event", slog.String("path", relPath), slog.String("error", fe.err.Error()))
			continue
		}
		if fe.skip || fe.result == nil {
			continue
		}
		if err := ix.commitFile(ctx, fe); err != nil {
			slog.Warn("commit failed on watch event", slog.String("path", relPath), slog.String("error", err.Error()))
		}
	}

	return nil
}

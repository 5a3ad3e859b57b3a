package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/index"
	cie_mcp "github.com/iceinvein/code-intelligence-mcp-server/internal/mcp"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/telemetry"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// Deps bundles the already-constructed components a Daemon orchestrates.
// Building these (opening the SQLite/bleve/hnsw stores, the embedder, the
// Retriever, the Assembler) is cmd/cie-server's job, the same division of
// labor the teacher's cmd/amanmcp/main.go uses before handing off to its
// own daemon/server types.
type Deps struct {
	Config        Config
	Indexer       *index.Indexer
	Watcher       *watcher.HybridWatcher // nil disables file watching
	RootDir       string
	MCP           *cie_mcp.Server
	Metrics       *telemetry.Metrics
	MetricsServer *telemetry.Server // nil disables the metrics HTTP endpoint
	Metadata      store.MetadataStore
	Logger        *slog.Logger
}

// Daemon is the long-running process: it runs the indexer once at startup,
// optionally watches the repository for changes, serves the MCP tool
// surface over stdio, serves Prometheus metrics over HTTP, and answers the
// control socket's ping/status/refresh_index methods.
type Daemon struct {
	cfg           Config
	indexer       *index.Indexer
	watcher       *watcher.HybridWatcher
	rootDir       string
	mcp           *cie_mcp.Server
	metrics       *telemetry.Metrics
	metricsServer *telemetry.Server
	metadata      store.MetadataStore
	control       *Server
	pidFile       *PIDFile
	logger        *slog.Logger

	mu      sync.Mutex
	started time.Time
}

// NewDaemon builds a Daemon over already-constructed components.
func NewDaemon(deps Deps) (*Daemon, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("daemon: invalid config: %w", err)
	}
	if deps.Indexer == nil {
		return nil, errors.New("daemon: indexer is required")
	}
	if deps.MCP == nil {
		return nil, errors.New("daemon: mcp server is required")
	}
	if deps.Metadata == nil {
		return nil, errors.New("daemon: metadata store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		cfg:           deps.Config,
		indexer:       deps.Indexer,
		watcher:       deps.Watcher,
		rootDir:       deps.RootDir,
		mcp:           deps.MCP,
		metrics:       deps.Metrics,
		metricsServer: deps.MetricsServer,
		metadata:      deps.Metadata,
		pidFile:       NewPIDFile(deps.Config.PIDPath),
		logger:        logger,
	}
	d.control = NewServer(deps.Config.SocketPath, d, logger)
	return d, nil
}

// Start runs the initial index, launches the watcher/MCP/metrics/control
// servers, and blocks until ctx is canceled or a component fails fatally.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDir(); err != nil {
		return err
	}
	if err := d.pidFile.Write(); err != nil {
		return fmt.Errorf("daemon: write PID file: %w", err)
	}
	defer d.pidFile.Remove()

	d.mu.Lock()
	d.started = time.Now()
	d.mu.Unlock()

	d.logger.Info("running initial index")
	start := time.Now()
	stats, err := d.indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("daemon: initial index: %w", err)
	}
	if d.metrics != nil {
		errCount := 0
		if stats != nil {
			errCount = len(stats.Errors)
			d.metrics.ObserveIndexRun(stats.FilesScanned, stats.FilesIndexed, stats.FilesSkipped,
				stats.SymbolsIndexed, stats.EdgesResolved, errCount, stats.Duration)
		}
	}
	if err := d.mcp.RebuildGraph(ctx); err != nil {
		return fmt.Errorf("daemon: build graph after initial index: %w", err)
	}
	d.logger.Info("initial index complete", slog.Duration("elapsed", time.Since(start)))

	group, gctx := errgroup.WithContext(ctx)

	if d.watcher != nil && d.rootDir != "" {
		group.Go(func() error { return d.runWatcher(gctx) })
	}
	if d.metricsServer != nil {
		if err := d.metricsServer.Start(); err != nil {
			return fmt.Errorf("daemon: start metrics server: %w", err)
		}
		defer d.metricsServer.Shutdown(context.Background())
	}

	group.Go(func() error { return d.control.ListenAndServe(gctx) })
	group.Go(func() error { return d.mcp.Serve(gctx, "stdio") })

	return group.Wait()
}

// runWatcher bridges file system events into the indexer's incremental
// update path, rebuilding the MCP graph after every batch so searches and
// graph tools see the change immediately.
func (d *Daemon) runWatcher(ctx context.Context) error {
	if err := d.watcher.Start(ctx, d.rootDir); err != nil {
		return fmt.Errorf("daemon: start watcher: %w", err)
	}
	defer d.watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case events, ok := <-d.watcher.Events():
			if !ok {
				return nil
			}
			if err := d.indexer.HandleEvents(ctx, events); err != nil {
				d.logger.Error("handle watch events", slog.String("error", err.Error()))
				continue
			}
			if err := d.mcp.RebuildGraph(ctx); err != nil {
				d.logger.Error("rebuild graph after watch event", slog.String("error", err.Error()))
			}
		case err, ok := <-d.watcher.Errors():
			if !ok {
				continue
			}
			d.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops every component.
func (d *Daemon) Close() error {
	var errs []error
	if err := d.control.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.mcp.Close(); err != nil {
		errs = append(errs, err)
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetStatus implements RequestHandler for the control socket.
func (d *Daemon) GetStatus() StatusResult {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()

	ctx := context.Background()
	ids, _ := d.metadata.ListAllSymbolIDs(ctx)
	edges, _ := d.metadata.AllEdges(ctx)
	stage, _, _ := d.metadata.GetState(ctx, store.StateKeyCheckpointStage)

	return StatusResult{
		Running:         true,
		Uptime:          time.Since(started).Round(time.Second).String(),
		Watching:        d.watcher != nil,
		TotalSymbols:    len(ids),
		TotalEdges:      len(edges),
		CheckpointStage: stage,
	}
}

// RefreshIndex implements RequestHandler by re-running the indexer and
// rebuilding the MCP graph, the same sequence handleRefreshIndex performs
// over MCP itself.
func (d *Daemon) RefreshIndex(ctx context.Context, params RefreshIndexParams) (RefreshIndexResult, error) {
	stats, err := d.indexer.Run(ctx)
	if err != nil {
		return RefreshIndexResult{}, err
	}
	if err := d.mcp.RebuildGraph(ctx); err != nil {
		return RefreshIndexResult{}, err
	}
	if d.metrics != nil {
		d.metrics.ObserveIndexRun(stats.FilesScanned, stats.FilesIndexed, stats.FilesSkipped,
			stats.SymbolsIndexed, stats.EdgesResolved, len(stats.Errors), stats.Duration)
	}

	errs := make([]string, 0, len(stats.Errors))
	for _, e := range stats.Errors {
		errs = append(errs, fmt.Sprintf("%s: %s", e.Path, e.Err))
	}
	return RefreshIndexResult{
		FilesScanned:   stats.FilesScanned,
		FilesIndexed:   stats.FilesIndexed,
		FilesSkipped:   stats.FilesSkipped,
		SymbolsIndexed: stats.SymbolsIndexed,
		EdgesResolved:  stats.EdgesResolved,
		DurationMS:     stats.Duration.Milliseconds(),
		Errors:         errs,
	}, nil
}

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/assemble"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/retrieval"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/telemetry"
	"github.com/iceinvein/code-intelligence-mcp-server/pkg/version"
)

// IndexStats is the slice of internal/index.Stats that refresh_index reports
// back to callers. Declared locally (rather than importing internal/index's
// Stats type) so this package's only coupling to the indexer is the Indexer
// interface below.
type IndexStats struct {
	FilesScanned   int
	FilesIndexed   int
	FilesSkipped   int
	SymbolsIndexed int
	EdgesResolved  int
	Duration       time.Duration
	Errors         []string
}

// Indexer is the slice of internal/index.Indexer that refresh_index needs;
// kept as an interface so this package doesn't import internal/index
// (cmd/cie-server/cmd's mcpIndexerAdapter wraps the concrete *index.Indexer
// and converts its Stats).
type Indexer interface {
	Run(ctx context.Context) (IndexStats, error)
}

// Server is the MCP tool surface: it bridges agent clients to the
// Retriever, Graph Engine, and Context Assembler over stdio JSON-RPC.
type Server struct {
	mcp      *mcp.Server
	metadata store.MetadataStore
	vector   store.VectorIndex
	embedder modeladapter.Embedder
	retriever *retrieval.Retriever
	assembler *assemble.Assembler
	indexer   Indexer
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	mu    sync.RWMutex
	graph *graph.Adjacency
}

// Deps bundles a Server's collaborators.
type Deps struct {
	Metadata  store.MetadataStore
	Vector    store.VectorIndex
	Embedder  modeladapter.Embedder
	Retriever *retrieval.Retriever
	Assembler *assemble.Assembler
	Indexer   Indexer
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

// NewServer builds the MCP server and registers every tool.
func NewServer(ctx context.Context, deps Deps) (*Server, error) {
	if deps.Metadata == nil {
		return nil, fmt.Errorf("mcp: metadata store is required")
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("mcp: retriever is required")
	}
	if deps.Assembler == nil {
		return nil, fmt.Errorf("mcp: assembler is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		metadata:  deps.Metadata,
		vector:    deps.Vector,
		embedder:  deps.Embedder,
		retriever: deps.Retriever,
		assembler: deps.Assembler,
		indexer:   deps.Indexer,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}

	if err := s.RebuildGraph(ctx); err != nil {
		return nil, err
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "code-intelligence-mcp-server",
		Version: version.Version,
	}, nil)
	s.registerSearchTools()
	s.registerDefinitionTools()
	s.registerGraphTools()
	s.registerFileTools()
	s.registerAdminTools()

	return s, nil
}

// RebuildGraph reloads the Graph Engine's in-memory adjacency from the
// Metadata Store's full edge set. Called at startup and after every
// refresh_index, since spec.md §4.6 treats the graph as a derived,
// rebuild-on-demand view rather than a persisted structure.
func (s *Server) RebuildGraph(ctx context.Context) error {
	edges, err := s.metadata.AllEdges(ctx)
	if err != nil {
		return fmt.Errorf("mcp: load edges for graph rebuild: %w", err)
	}
	s.mu.Lock()
	s.graph = graph.Build(edges)
	s.mu.Unlock()
	return nil
}

func (s *Server) adjacency() *graph.Adjacency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// MCPServer returns the underlying SDK server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve starts the server on the given transport, blocking until ctx is
// canceled or the transport errors. Only "stdio" is implemented, matching
// spec.md §6's default server.transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))
	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio)", transport)
	}
}

// Close releases server resources. The MCP SDK server itself stops when its
// context is canceled, so this is currently a no-op kept for symmetry with
// the rest of the daemon's component lifecycle.
func (s *Server) Close() error {
	return nil
}

// timeTool wraps a handler with ObserveToolCall bookkeeping when metrics are
// configured.
func (s *Server) timeTool(name string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveToolCall(name, time.Since(start), err)
	}
}

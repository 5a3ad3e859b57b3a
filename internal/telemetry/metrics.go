// Package telemetry exposes the engine's Prometheus metrics (spec.md §6
// Observability): per-phase indexing counters, retrieval latency histograms
// broken out per source, and cache hit-rate gauges, served on a loopback
// HTTP listener.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// indexDurationBuckets spans a single small file (milliseconds) up to a
// full cold index of a large repository (minutes).
var indexDurationBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600,
}

// searchDurationBuckets spans a cache hit (sub-millisecond) up to a slow
// multi-source fan-out with reranking.
var searchDurationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// Metrics holds every collector this engine registers. Unlike the teacher's
// package-level sync.Once/global-registerer pattern, this is built per
// instance over its own prometheus.Registry so daemon tests can spin up
// independent Metrics without fighting over the global DefaultRegisterer.
type Metrics struct {
	Registry *prometheus.Registry

	FilesScanned   prometheus.Counter
	FilesIndexed   prometheus.Counter
	FilesSkipped   prometheus.Counter
	SymbolsIndexed prometheus.Counter
	EdgesResolved  prometheus.Counter
	IndexErrors    prometheus.Counter
	IndexDuration  prometheus.Histogram

	WatchEventsHandled prometheus.Counter
	WatchErrors        prometheus.Counter

	SearchRequests       *prometheus.CounterVec   // label: intent
	SearchDuration       prometheus.Histogram
	SourceLatency        *prometheus.HistogramVec // label: source (keyword/vector/graph/rerank)
	AssembledContextSize prometheus.Histogram     // tokens per Assemble call

	CacheHits   *prometheus.CounterVec // label: cache (embedding/result)
	CacheMisses *prometheus.CounterVec // label: cache

	MCPToolCalls   *prometheus.CounterVec // label: tool
	MCPToolErrors  *prometheus.CounterVec // label: tool
	MCPToolLatency *prometheus.HistogramVec
}

// New builds a Metrics instance and registers every collector against a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,

		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_index_files_scanned_total", Help: "Files visited during a scan pass.",
		}),
		FilesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_index_files_indexed_total", Help: "Files committed to the metadata store.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_index_files_skipped_total", Help: "Files skipped (unchanged fingerprint, excluded, too large).",
		}),
		SymbolsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_index_symbols_total", Help: "Symbols extracted across all indexed files.",
		}),
		EdgesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_index_edges_resolved_total", Help: "Edges resolved to a concrete target symbol.",
		}),
		IndexErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_index_errors_total", Help: "Non-fatal per-file indexing errors.",
		}),
		IndexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cie_index_run_duration_seconds", Help: "Wall-clock duration of one full or incremental index run.",
			Buckets: indexDurationBuckets,
		}),

		WatchEventsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_watch_events_handled_total", Help: "Debounced file events applied to the index.",
		}),
		WatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cie_watch_errors_total", Help: "Errors surfaced by the file watcher.",
		}),

		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_search_requests_total", Help: "Search requests by detected intent.",
		}, []string{"intent"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cie_search_duration_seconds", Help: "End-to-end Retriever.Search duration.",
			Buckets: searchDurationBuckets,
		}),
		SourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cie_search_source_duration_seconds", Help: "Per-source fan-out duration within a search.",
			Buckets: searchDurationBuckets,
		}, []string{"source"}),
		AssembledContextSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cie_assemble_context_tokens", Help: "Token count of assembled context, per Assemble call.",
			Buckets: []float64{256, 512, 1024, 2048, 4096, 8192, 16384, 32768},
		}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_cache_hits_total", Help: "Cache hits by cache name.",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_cache_misses_total", Help: "Cache misses by cache name.",
		}, []string{"cache"}),

		MCPToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_mcp_tool_calls_total", Help: "MCP tool invocations by tool name.",
		}, []string{"tool"}),
		MCPToolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cie_mcp_tool_errors_total", Help: "MCP tool invocations that returned an error, by tool name.",
		}, []string{"tool"}),
		MCPToolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cie_mcp_tool_duration_seconds", Help: "MCP tool handler duration, by tool name.",
			Buckets: searchDurationBuckets,
		}, []string{"tool"}),
	}

	reg.MustRegister(
		m.FilesScanned, m.FilesIndexed, m.FilesSkipped, m.SymbolsIndexed, m.EdgesResolved,
		m.IndexErrors, m.IndexDuration,
		m.WatchEventsHandled, m.WatchErrors,
		m.SearchRequests, m.SearchDuration, m.SourceLatency, m.AssembledContextSize,
		m.CacheHits, m.CacheMisses,
		m.MCPToolCalls, m.MCPToolErrors, m.MCPToolLatency,
	)
	return m
}

// ObserveIndexRun records one completed Indexer.Run's counters, taking
// primitive fields rather than *index.Stats to avoid this package importing
// internal/index.
func (m *Metrics) ObserveIndexRun(filesScanned, filesIndexed, filesSkipped, symbolsIndexed, edgesResolved, errCount int, duration time.Duration) {
	m.FilesScanned.Add(float64(filesScanned))
	m.FilesIndexed.Add(float64(filesIndexed))
	m.FilesSkipped.Add(float64(filesSkipped))
	m.SymbolsIndexed.Add(float64(symbolsIndexed))
	m.EdgesResolved.Add(float64(edgesResolved))
	m.IndexErrors.Add(float64(errCount))
	m.IndexDuration.Observe(duration.Seconds())
}

// ObserveSearch records one Retriever.Search call.
func (m *Metrics) ObserveSearch(intent string, duration time.Duration) {
	m.SearchRequests.WithLabelValues(intent).Inc()
	m.SearchDuration.Observe(duration.Seconds())
}

// ObserveSourceLatency records one per-source fan-out duration within a search.
func (m *Metrics) ObserveSourceLatency(source string, duration time.Duration) {
	m.SourceLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveCache records a cache hit or miss by cache name ("embedding", "result").
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// ObserveToolCall records one MCP tool invocation.
func (m *Metrics) ObserveToolCall(tool string, duration time.Duration, err error) {
	m.MCPToolCalls.WithLabelValues(tool).Inc()
	m.MCPToolLatency.WithLabelValues(tool).Observe(duration.Seconds())
	if err != nil {
		m.MCPToolErrors.WithLabelValues(tool).Inc()
	}
}

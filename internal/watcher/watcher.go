// Package watcher turns filesystem change notifications into debounced
// batches of FileEvents for the Indexer's incremental pipeline
// (spec.md §4.5, watch_mode).
package watcher

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event for one path.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher defines the interface for file system watching; HybridWatcher is
// the only implementation, fsnotify-backed with a polling fallback.
type Watcher interface {
	// Start begins watching root recursively. Runs until Stop is called or
	// ctx is cancelled.
	Start(ctx context.Context, root string) error
	// Stop stops the watcher and releases resources. Safe to call multiple times.
	Stop() error
	// Events returns debounced batches of file events. Closed when the
	// watcher stops.
	Events() <-chan []FileEvent
	// Errors returns non-fatal watcher errors. Closed when the watcher stops.
	Errors() <-chan error
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting a coalesced batch.
	DebounceWindow time.Duration
	// PollInterval is the interval used in polling fallback mode.
	PollInterval time.Duration
	// EventBufferSize bounds the batched-event channel.
	EventBufferSize int
	// IncludePatterns are doublestar globs a path must match at least one
	// of to be watched (spec.md's index_patterns).
	IncludePatterns []string
	// ExcludePatterns are doublestar globs that veto a path regardless of
	// IncludePatterns (spec.md's exclude_patterns).
	ExcludePatterns []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  250 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
		IncludePatterns: []string{"**/*"},
	}
}

// WithDefaults returns o with zero-value fields filled from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	if len(o.IncludePatterns) == 0 {
		o.IncludePatterns = d.IncludePatterns
	}
	return o
}

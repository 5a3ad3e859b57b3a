package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation_Constants(t *testing.T) {
	assert.NotEqual(t, OpCreate, OpModify)
	assert.NotEqual(t, OpCreate, OpDelete)
	assert.NotEqual(t, OpCreate, OpRename)
	assert.NotEqual(t, OpModify, OpDelete)
	assert.NotEqual(t, OpModify, OpRename)
	assert.NotEqual(t, OpDelete, OpRename)
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"create", OpCreate, "CREATE"},
		{"modify", OpModify, "MODIFY"},
		{"delete", OpDelete, "DELETE"},
		{"rename", OpRename, "RENAME"},
		{"unknown", Operation(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOptions_WithDefaultsFillsZeroValues(t *testing.T) {
	opts := Options{}.WithDefaults()
	assert.Equal(t, DefaultOptions().DebounceWindow, opts.DebounceWindow)
	assert.Equal(t, DefaultOptions().PollInterval, opts.PollInterval)
	assert.Equal(t, DefaultOptions().EventBufferSize, opts.EventBufferSize)
	assert.NotEmpty(t, opts.IncludePatterns)
}

func TestOptions_WithDefaultsPreservesSetValues(t *testing.T) {
	opts := Options{EventBufferSize: 42}.WithDefaults()
	assert.Equal(t, 42, opts.EventBufferSize)
}

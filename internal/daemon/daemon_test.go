package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/index"
	cie_mcp "github.com/iceinvein/code-intelligence-mcp-server/internal/mcp"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
	"github.com/stretchr/testify/require"
)

func validDeps(t *testing.T) Deps {
	t.Helper()
	dir := t.TempDir()
	return Deps{
		Config: Config{
			SocketPath:          filepath.Join(dir, "daemon.sock"),
			PIDPath:             filepath.Join(dir, "daemon.pid"),
			Timeout:             time.Second,
			ShutdownGracePeriod: time.Second,
		},
		Indexer:  &index.Indexer{},
		MCP:      &cie_mcp.Server{},
		Metadata: &fakeMetadataStore{},
	}
}

func TestNewDaemon_RejectsMissingIndexer(t *testing.T) {
	deps := validDeps(t)
	deps.Indexer = nil

	_, err := NewDaemon(deps)

	require.Error(t, err)
}

func TestNewDaemon_RejectsMissingMCPServer(t *testing.T) {
	deps := validDeps(t)
	deps.MCP = nil

	_, err := NewDaemon(deps)

	require.Error(t, err)
}

func TestNewDaemon_RejectsMissingMetadataStore(t *testing.T) {
	deps := validDeps(t)
	deps.Metadata = nil

	_, err := NewDaemon(deps)

	require.Error(t, err)
}

func TestNewDaemon_RejectsInvalidConfig(t *testing.T) {
	deps := validDeps(t)
	deps.Config.SocketPath = ""

	_, err := NewDaemon(deps)

	require.Error(t, err)
}

func TestNewDaemon_SucceedsWithRequiredDeps(t *testing.T) {
	deps := validDeps(t)

	d, err := NewDaemon(deps)

	require.NoError(t, err)
	require.NotNil(t, d)
	require.NotNil(t, d.control)
}

func TestDaemonGetStatus_ReflectsMetadataAndWatcherState(t *testing.T) {
	meta := &fakeMetadataStore{
		symbolIDs: []string{"a", "b", "c"},
		edges:     []*store.Edge{{FromSymbolID: "a", ToSymbolID: "b"}},
		state:     map[string]string{store.StateKeyCheckpointStage: "complete"},
	}
	d := &Daemon{metadata: meta, started: time.Now().Add(-time.Minute)}

	status := d.GetStatus()

	require.True(t, status.Running)
	require.False(t, status.Watching)
	require.Equal(t, 3, status.TotalSymbols)
	require.Equal(t, 1, status.TotalEdges)
	require.Equal(t, "complete", status.CheckpointStage)
	require.NotEmpty(t, status.Uptime)
}

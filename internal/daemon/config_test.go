package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_RootsUnderDotCIE(t *testing.T) {
	cfg := DefaultConfig()

	require.Contains(t, cfg.SocketPath, filepath.Join(".cie", "daemon.sock"))
	require.Contains(t, cfg.PIDPath, filepath.Join(".cie", "daemon.pid"))
	require.Positive(t, cfg.Timeout)
	require.Positive(t, cfg.ShutdownGracePeriod)
}

func TestConfigValidate_RejectsEmptySocketPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SocketPath = ""

	require.Error(t, cfg.Validate())
}

func TestConfigValidate_RejectsEmptyPIDPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PIDPath = ""

	require.Error(t, cfg.Validate())
}

func TestConfigValidate_RejectsNonPositiveTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 0

	require.Error(t, cfg.Validate())
}

func TestConfigEnsureDir_CreatesSocketAndPIDDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		SocketPath:          filepath.Join(dir, "sub", "daemon.sock"),
		PIDPath:             filepath.Join(dir, "sub", "daemon.pid"),
		Timeout:             1,
		ShutdownGracePeriod: 1,
	}

	require.NoError(t, cfg.EnsureDir())
	require.DirExists(t, filepath.Join(dir, "sub"))
}

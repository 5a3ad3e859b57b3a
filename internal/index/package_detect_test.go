package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPackage_FindsNearestManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "sub", "package.json"), []byte("{}"), 0o644))

	outer := detectPackage(root, "internal/other.go")
	require.NotNil(t, outer)
	assert.Equal(t, "go", outer.Ecosystem)

	inner := detectPackage(root, "internal/sub/index.js")
	require.NotNil(t, inner)
	assert.Equal(t, "node", inner.Ecosystem)
	assert.NotEqual(t, outer.ID, inner.ID)
}

func TestDetectPackage_IDIsPathDerivedNotNameDerived(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "utils"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b", "utils"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "utils", "go.mod"), []byte("module utils"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "utils", "go.mod"), []byte("module utils"), 0o644))

	a := detectPackage(root, "a/utils/x.go")
	b := detectPackage(root, "b/utils/x.go")

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.Name, b.Name)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDetectPackage_NoManifestDegradesToNil(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "loose"), 0o755))

	assert.Nil(t, detectPackage(root, "loose/file.go"))
}

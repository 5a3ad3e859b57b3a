package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// manifestFiles maps a manifest filename to its ecosystem tag. Detection is
// best-effort: a missing or unreadable manifest just means the file's
// Package fields stay null, per spec.md §4.1 ("package detection is
// best-effort... search must degrade gracefully").
var manifestFiles = map[string]string{
	"go.mod":           "go",
	"package.json":     "node",
	"pyproject.toml":   "python",
	"Cargo.toml":       "rust",
	"pom.xml":          "java",
	"build.gradle":     "java",
	"Gemfile":          "ruby",
	"composer.json":    "php",
}

// detectPackage walks upward from a file's directory looking for the
// nearest manifest, deriving a path-identified Package (never
// name-derived, so two "utils" packages in different directories don't
// collide) and a repo-root-identified Repository.
func detectPackage(absRoot, relPath string) *store.Package {
	dir := filepath.Dir(filepath.Join(absRoot, relPath))

	for {
		for manifest, ecosystem := range manifestFiles {
			manifestPath := filepath.Join(dir, manifest)
			if _, err := os.Stat(manifestPath); err == nil {
				name := filepath.Base(dir)
				return &store.Package{
					ID:           packageID(manifestPath),
					Name:         name,
					ManifestPath: manifestPath,
					Ecosystem:    ecosystem,
					RootDir:      dir,
					RepoID:       repositoryID(absRoot),
				}
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir || !strings.HasPrefix(dir, absRoot) {
			return nil
		}
		dir = parent
	}
}

func packageID(manifestPath string) string {
	return sha256Hex(manifestPath)
}

func repositoryID(root string) string {
	return sha256Hex(root)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ensureRepository records the Repository row for root, ignoring a failed
// write the same way package detection does: this is diagnostic metadata,
// not load-bearing for indexing correctness.
func ensureRepository(ctx context.Context, metadata store.MetadataStore, root string) {
	_ = metadata.SaveRepository(ctx, &store.Repository{ID: repositoryID(root), Root: root})
}

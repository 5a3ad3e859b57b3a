package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ScanResult is one discovered file, relative to Config.RootDir.
type ScanResult struct {
	RelPath string
	AbsPath string
	Size    int64
	ModTime int64
}

// scan walks RootDir and streams matching files on the returned channel,
// mirroring the teacher's Scanner.Scan streaming shape. The channel closes
// when the walk completes or ctx is cancelled.
func (ix *Indexer) scan(ctx context.Context) (<-chan ScanResult, error) {
	absRoot, err := filepath.Abs(ix.cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root dir: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	out := make(chan ScanResult, 64)

	go func() {
		defer close(out)

		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if walkErr != nil {
				return nil
			}

			relPath, err := filepath.Rel(absRoot, path)
			if err != nil || relPath == "." {
				return nil
			}
			relPath = filepath.ToSlash(relPath)

			if d.IsDir() {
				if ix.skipDir(relPath) {
					return filepath.SkipDir
				}
				return nil
			}

			if !ix.includeFile(relPath) {
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				return nil
			}
			if fi.Mode()&os.ModeSymlink != 0 {
				return nil
			}
			if fi.Size() > ix.cfg.MaxFileSize {
				return nil
			}

			select {
			case out <- ScanResult{RelPath: relPath, AbsPath: path, Size: fi.Size(), ModTime: fi.ModTime().UnixNano()}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	return out, nil
}

func (ix *Indexer) skipDir(relPath string) bool {
	if relPath == ".git" || strings.HasPrefix(relPath, ".git/") {
		return true
	}
	if !ix.cfg.IndexNodeModules && (relPath == "node_modules" || strings.HasPrefix(relPath, "node_modules/") || strings.Contains(relPath, "/node_modules/")) {
		return true
	}
	for _, pat := range ix.cfg.ExcludePatterns {
		trimmed := strings.TrimSuffix(pat, "/**")
		if ok, _ := doublestar.Match(trimmed, relPath); ok {
			return true
		}
	}
	return false
}

func (ix *Indexer) includeFile(relPath string) bool {
	for _, pat := range ix.cfg.ExcludePatterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return false
		}
	}
	if len(ix.cfg.IncludePatterns) == 0 {
		return true
	}
	for _, pat := range ix.cfg.IncludePatterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

// FileSourceLoader reads symbol source text directly off disk, rooted at
// RootDir, mirroring the plain os.ReadFile access the Indexer itself uses
// when extracting files (internal/index/extract_stage.go). Whole-file
// contents are cached per path since a single assembly call typically
// renders several symbols from the same file.
type FileSourceLoader struct {
	RootDir string

	mu    sync.Mutex
	cache map[string][]string
}

// NewFileSourceLoader returns a loader rooted at dir.
func NewFileSourceLoader(dir string) *FileSourceLoader {
	return &FileSourceLoader{RootDir: dir, cache: make(map[string][]string)}
}

var _ SourceLoader = (*FileSourceLoader)(nil)

// ReadRange returns the 1-indexed, inclusive line range [startLine, endLine]
// of filePath, joined by newlines.
func (l *FileSourceLoader) ReadRange(ctx context.Context, filePath string, startLine, endLine int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lines, err := l.lines(filePath)
	if err != nil {
		return "", err
	}
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine || startLine > len(lines) {
		return "", nil
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}

func (l *FileSourceLoader) lines(relPath string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[relPath]; ok {
		return cached, nil
	}

	abs := relPath
	if l.RootDir != "" && !filepath.IsAbs(relPath) {
		abs = filepath.Join(l.RootDir, relPath)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, cierrors.IoFailure(fmt.Sprintf("read source for %s", relPath), err)
	}
	lines := strings.Split(string(content), "\n")
	l.cache[relPath] = lines
	return lines, nil
}

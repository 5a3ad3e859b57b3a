package watcher

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// patternMatcher applies spec.md's index_patterns/exclude_patterns doublestar
// globs, replacing the ad hoc filepath.Match the include/exclude check would
// otherwise need.
type patternMatcher struct {
	include []string
	exclude []string
}

func newPatternMatcher(include, exclude []string) *patternMatcher {
	return &patternMatcher{include: include, exclude: exclude}
}

// Match reports whether relPath should be watched/indexed: it must match at
// least one include pattern and no exclude pattern. Directories are always
// allowed through so the walk can descend into them; exclusion of a
// directory's contents is handled by matching the directory's own glob
// (e.g. "node_modules/**").
func (m *patternMatcher) Match(relPath string, isDir bool) bool {
	relPath = strings.TrimPrefix(filepathToSlash(relPath), "./")
	if relPath == "" || relPath == "." {
		return true
	}

	for _, pat := range m.exclude {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return false
		}
		if isDir {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pat, "/**"), relPath); ok {
				return false
			}
		}
	}

	if isDir {
		// A directory is kept as long as it isn't excluded; whether its
		// files match an include pattern is decided per-file.
		return true
	}

	if len(m.include) == 0 {
		return true
	}
	for _, pat := range m.include {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

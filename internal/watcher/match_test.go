package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternMatcher_IncludeMatchesGlob(t *testing.T) {
	m := newPatternMatcher([]string{"**/*.go"}, nil)
	assert.True(t, m.Match("internal/foo/bar.go", false))
	assert.False(t, m.Match("internal/foo/bar.py", false))
}

func TestPatternMatcher_ExcludeVetoesInclude(t *testing.T) {
	m := newPatternMatcher([]string{"**/*"}, []string{"**/node_modules/**"})
	assert.False(t, m.Match("node_modules/pkg/index.js", false))
	assert.True(t, m.Match("src/index.js", false))
}

func TestPatternMatcher_DirectoriesAlwaysPassUnlessExcluded(t *testing.T) {
	m := newPatternMatcher([]string{"**/*.go"}, []string{"**/node_modules/**"})
	assert.True(t, m.Match("internal/foo", true))
	assert.False(t, m.Match("node_modules", true))
}

func TestPatternMatcher_EmptyIncludeMatchesEverything(t *testing.T) {
	m := newPatternMatcher(nil, nil)
	assert.True(t, m.Match("anything/at/all.rb", false))
}

func TestPatternMatcher_RootPathAlwaysMatches(t *testing.T) {
	m := newPatternMatcher([]string{"**/*.go"}, nil)
	assert.True(t, m.Match(".", true))
}

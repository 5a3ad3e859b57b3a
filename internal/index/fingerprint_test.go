package index

import (
	"testing"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestHashContent_DeterministicAndSensitiveToContent(t *testing.T) {
	a := hashContent([]byte("package main"))
	b := hashContent([]byte("package main"))
	c := hashContent([]byte("package other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestUnchanged_NilFingerprintAlwaysChanged(t *testing.T) {
	assert.False(t, unchanged(nil, 10, 100, []byte("x")))
}

func TestUnchanged_SizeMismatchIsChanged(t *testing.T) {
	fp := &store.Fingerprint{SizeBytes: 5, MTimeNanos: 100}
	assert.False(t, unchanged(fp, 10, 100, []byte("0123456789")))
}

func TestUnchanged_MatchingMTimeShortCircuits(t *testing.T) {
	fp := &store.Fingerprint{SizeBytes: 5, MTimeNanos: 100, ContentHash: "stale"}
	assert.True(t, unchanged(fp, 5, 100, []byte("hello")))
}

func TestUnchanged_MTimeDriftFallsBackToContentHash(t *testing.T) {
	content := []byte("hello")
	fp := &store.Fingerprint{SizeBytes: int64(len(content)), MTimeNanos: 100, ContentHash: hashContent(content)}

	assert.True(t, unchanged(fp, int64(len(content)), 200, content))
	assert.False(t, unchanged(fp, int64(len(content)), 200, []byte("world")))
}

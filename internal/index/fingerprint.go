package index

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// hashContent fingerprints file content with xxhash rather than
// crypto/sha256: this hash is used purely for cheap change detection, never
// for anything security-sensitive, so the faster non-cryptographic hash is
// the right tool (the embedding cache still content-addresses with sha256,
// since that key is persisted across runs and benefits from collision
// resistance at negligible extra cost for a much colder path).
func hashContent(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// unchanged reports whether fp (the stored fingerprint) still matches a
// freshly-observed file, letting Run skip re-extraction entirely.
func unchanged(fp *store.Fingerprint, size int64, modTimeNanos int64, content []byte) bool {
	if fp == nil {
		return false
	}
	if fp.SizeBytes != size {
		return false
	}
	if fp.MTimeNanos == modTimeNanos {
		return true
	}
	// mtime alone isn't trustworthy across some filesystems/clock
	// resolutions; fall back to a content hash compare before committing to
	// a full re-extract.
	return fp.ContentHash == hashContent(content)
}

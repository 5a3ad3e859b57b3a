//go:build nocgo

package store

import (
	_ "modernc.org/sqlite"
)

// sqlDriverName is the database/sql driver registered for this build. Built
// with the "nocgo" tag, it links the pure-Go modernc.org/sqlite driver so the
// binary cross-compiles without a C toolchain.
const sqlDriverName = "sqlite"

// dsnParams appends driver-specific connection parameters understood by
// modernc.org/sqlite's DSN parser. Most pragmas are re-applied explicitly
// after open since modernc.org/sqlite ignores some DSN-level pragma params.
func dsnParams(path string) string {
	return path + "?_pragma=busy_timeout(5000)"
}

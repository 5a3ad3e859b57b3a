//go:build !nocgo

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqlDriverName is the database/sql driver registered for this build. The
// default build links the CGO-based mattn/go-sqlite3 driver; pass the
// "nocgo" build tag to link the pure-Go modernc.org/sqlite driver instead.
const sqlDriverName = "sqlite3"

// dsnParams appends driver-specific connection parameters understood by
// mattn/go-sqlite3's DSN parser. WAL mode and busy timeout are still set via
// explicit PRAGMA statements after open, since DSN-level pragmas differ
// between the two drivers.
func dsnParams(path string) string {
	return path + "?_journal=WAL&_timeout=5000&_fk=true"
}

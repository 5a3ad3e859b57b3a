// Package logging provides structured JSON logging for the engine, with
// opt-in file-based logging with rotation. By default logs go to stderr
// only; a configured FilePath additionally writes a rotated file under
// the data directory.
package logging

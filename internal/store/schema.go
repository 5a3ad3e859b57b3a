package store

// schemaDDL creates every C1 table described in spec.md Section 3. Foreign
// keys are enforced (the store sets PRAGMA foreign_keys = ON) but declare no
// ON DELETE actions; cascade deletes are performed
// explicitly in application code inside a single transaction, not relied on
// at the sqlite level, since FK cascade behavior differs subtly between the
// two driver builds.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS kv_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS repositories (
	id   TEXT PRIMARY KEY,
	root TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS packages (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	version       TEXT,
	manifest_path TEXT NOT NULL,
	ecosystem     TEXT NOT NULL,
	root_dir      TEXT NOT NULL,
	repo_id       TEXT NOT NULL REFERENCES repositories(id)
);
CREATE INDEX IF NOT EXISTS idx_packages_root_dir ON packages(root_dir);

CREATE TABLE IF NOT EXISTS fingerprints (
	path         TEXT PRIMARY KEY,
	mtime_ns     INTEGER NOT NULL,
	size_bytes   INTEGER NOT NULL,
	content_hash TEXT
);

CREATE TABLE IF NOT EXISTS symbols (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	language   TEXT NOT NULL,
	exported   INTEGER NOT NULL,
	signature  TEXT,
	package_id TEXT REFERENCES packages(id)
);
CREATE INDEX IF NOT EXISTS idx_symbols_file_path ON symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS edges (
	from_symbol_id TEXT NOT NULL,
	to_symbol_id   TEXT NOT NULL,
	kind           TEXT NOT NULL,
	at_file        TEXT NOT NULL,
	at_line        INTEGER NOT NULL,
	evidence_count INTEGER NOT NULL DEFAULT 1,
	resolution     TEXT NOT NULL,
	PRIMARY KEY (from_symbol_id, to_symbol_id, kind, at_file, at_line)
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_at_file ON edges(at_file);

CREATE TABLE IF NOT EXISTS docstrings (
	symbol_id TEXT PRIMARY KEY,
	summary   TEXT,
	params    TEXT,
	returns   TEXT,
	examples  TEXT,
	tags      TEXT
);

CREATE TABLE IF NOT EXISTS decorators (
	symbol_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	known     INTEGER NOT NULL,
	PRIMARY KEY (symbol_id, name)
);
CREATE INDEX IF NOT EXISTS idx_decorators_name ON decorators(name);

CREATE TABLE IF NOT EXISTS todos (
	file_path TEXT NOT NULL,
	line      INTEGER NOT NULL,
	keyword   TEXT NOT NULL,
	text      TEXT NOT NULL,
	symbol_id TEXT,
	PRIMARY KEY (file_path, line)
);
CREATE INDEX IF NOT EXISTS idx_todos_keyword ON todos(keyword);

CREATE TABLE IF NOT EXISTS test_links (
	test_file_path    TEXT NOT NULL,
	subject_file_path TEXT NOT NULL,
	subject_symbol_id TEXT,
	PRIMARY KEY (test_file_path, subject_file_path, subject_symbol_id)
);
CREATE INDEX IF NOT EXISTS idx_test_links_subject_symbol ON test_links(subject_symbol_id);
CREATE INDEX IF NOT EXISTS idx_test_links_subject_file ON test_links(subject_file_path);

CREATE TABLE IF NOT EXISTS symbol_metrics (
	symbol_id            TEXT PRIMARY KEY,
	pagerank              REAL NOT NULL DEFAULT 0,
	popularity_count       INTEGER NOT NULL DEFAULT 0,
	normalized_pagerank    REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS query_selections (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	query_text         TEXT NOT NULL,
	query_normalized   TEXT NOT NULL,
	selected_symbol_id TEXT NOT NULL,
	position           INTEGER NOT NULL,
	created_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_selections_normalized ON query_selections(query_normalized);

CREATE TABLE IF NOT EXISTS file_affinity (
	file_path        TEXT PRIMARY KEY,
	view_count       INTEGER NOT NULL DEFAULT 0,
	edit_count       INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT
);
`

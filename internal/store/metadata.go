package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

// SQLiteMetadataStore implements MetadataStore over database/sql, backed by
// whichever sqlite driver this build links (see driver_cgo.go/driver_nocgo.go).
// It holds all writes behind a single in-process mutex and relies on WAL mode
// plus busy_timeout for cross-process coordination, matching the
// single-writer/multi-reader discipline of the keyword and vector stores.
type SQLiteMetadataStore struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	closed   bool
	retryCfg cierrors.RetryConfig
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore opens (or creates) the metadata store at path. An
// empty path opens an in-memory database, useful for tests.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create metadata store dir: %w", err)
			}
		}
		dsn = dsnParams(path)
	}

	db, err := sql.Open(sqlDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	// Single writer: sqlite allows only one writer at a time regardless of
	// connection count, so capping the pool avoids busy-retry storms between
	// our own connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteMetadataStore{
		db:       db,
		path:     path,
		retryCfg: cierrors.DefaultRetryConfig(),
	}, nil
}

func (s *SQLiteMetadataStore) withWriteLock(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cierrors.New(cierrors.CodeStoreLockBusy, "metadata store is closed", nil)
	}

	return cierrors.Retry(ctx, s.retryCfg, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return cierrors.Wrap(cierrors.CodeStoreLockBusy, err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return cierrors.Wrap(cierrors.CodeStoreLockBusy, err)
		}
		return nil
	})
}

// UpsertFile commits one file's full extraction result transactionally.
func (s *SQLiteMetadataStore) UpsertFile(ctx context.Context, r *ExtractionResult) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		if err := deleteFileRows(ctx, tx, r.FilePath); err != nil {
			return err
		}

		for _, sym := range r.Symbols {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO symbols(id,name,kind,file_path,start_line,end_line,language,exported,signature,package_id)
				 VALUES (?,?,?,?,?,?,?,?,?,?)`,
				sym.ID, sym.Name, string(sym.Kind), sym.FilePath, sym.StartLine, sym.EndLine,
				sym.Language, boolToInt(sym.Exported), sym.Signature, nullIfEmpty(sym.PackageID)); err != nil {
				return fmt.Errorf("insert symbol %s: %w", sym.ID, err)
			}
		}

		for _, e := range r.Edges {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO edges(from_symbol_id,to_symbol_id,kind,at_file,at_line,evidence_count,resolution)
				 VALUES (?,?,?,?,?,?,?)`,
				e.FromSymbolID, e.ToSymbolID, string(e.Kind), e.AtFile, e.AtLine, e.EvidenceCount, string(e.Resolution)); err != nil {
				return fmt.Errorf("insert edge: %w", err)
			}
		}

		for _, d := range r.Docstrings {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO docstrings(symbol_id,summary,params,returns,examples,tags)
				 VALUES (?,?,?,?,?,?)`,
				d.SymbolID, d.Summary, d.Params, d.Returns, d.Examples, d.Tags); err != nil {
				return fmt.Errorf("insert docstring: %w", err)
			}
		}

		for _, dec := range r.Decorators {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO decorators(symbol_id,name,known) VALUES (?,?,?)`,
				dec.SymbolID, dec.Name, boolToInt(dec.Known)); err != nil {
				return fmt.Errorf("insert decorator: %w", err)
			}
		}

		for _, td := range r.TODOs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO todos(file_path,line,keyword,text,symbol_id) VALUES (?,?,?,?,?)`,
				td.FilePath, td.Line, td.Keyword, td.Text, nullIfEmpty(td.SymbolID)); err != nil {
				return fmt.Errorf("insert todo: %w", err)
			}
		}

		fp := r.Fingerprint
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO fingerprints(path,mtime_ns,size_bytes,content_hash) VALUES (?,?,?,?)`,
			fp.Path, fp.MTimeNanos, fp.SizeBytes, nullIfEmpty(fp.ContentHash)); err != nil {
			return fmt.Errorf("insert fingerprint: %w", err)
		}

		return nil
	})
}

func deleteFileRows(ctx context.Context, tx *sql.Tx, path string) error {
	stmts := []struct {
		query string
		arg   string
	}{
		{`DELETE FROM edges WHERE at_file = ?`, path},
		{`DELETE FROM decorators WHERE symbol_id IN (SELECT id FROM symbols WHERE file_path = ?)`, path},
		{`DELETE FROM docstrings WHERE symbol_id IN (SELECT id FROM symbols WHERE file_path = ?)`, path},
		{`DELETE FROM symbols WHERE file_path = ?`, path},
		{`DELETE FROM todos WHERE file_path = ?`, path},
		{`DELETE FROM fingerprints WHERE path = ?`, path},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.arg); err != nil {
			return fmt.Errorf("delete file rows (%s): %w", st.query, err)
		}
	}
	return nil
}

func (s *SQLiteMetadataStore) DeleteFile(ctx context.Context, path string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		return deleteFileRows(ctx, tx, path)
	})
}

func (s *SQLiteMetadataStore) GetFingerprint(ctx context.Context, path string) (*Fingerprint, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, mtime_ns, size_bytes, content_hash FROM fingerprints WHERE path = ?`, path)
	var fp Fingerprint
	var hash sql.NullString
	if err := row.Scan(&fp.Path, &fp.MTimeNanos, &fp.SizeBytes, &hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	fp.ContentHash = hash.String
	return &fp, true, nil
}

func (s *SQLiteMetadataStore) ListFingerprints(ctx context.Context) (map[string]*Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, mtime_ns, size_bytes, content_hash FROM fingerprints`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*Fingerprint)
	for rows.Next() {
		var fp Fingerprint
		var hash sql.NullString
		if err := rows.Scan(&fp.Path, &fp.MTimeNanos, &fp.SizeBytes, &hash); err != nil {
			return nil, err
		}
		fp.ContentHash = hash.String
		out[fp.Path] = &fp
	}
	return out, rows.Err()
}

func scanSymbol(row interface{ Scan(...any) error }) (*Symbol, error) {
	var sym Symbol
	var kind string
	var exported int
	var sig, pkgID sql.NullString
	if err := row.Scan(&sym.ID, &sym.Name, &kind, &sym.FilePath, &sym.StartLine, &sym.EndLine,
		&sym.Language, &exported, &sig, &pkgID); err != nil {
		return nil, err
	}
	sym.Kind = SymbolKind(kind)
	sym.Exported = exported != 0
	sym.Signature = sig.String
	sym.PackageID = pkgID.String
	return &sym, nil
}

const symbolColumns = `id,name,kind,file_path,start_line,end_line,language,exported,signature,package_id`

func (s *SQLiteMetadataStore) GetSymbol(ctx context.Context, id string) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE id = ?`, id)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, cierrors.New(cierrors.CodeNotFoundSymbol, "symbol not found: "+id, nil)
	}
	return sym, err
}

func (s *SQLiteMetadataStore) GetSymbolsByFile(ctx context.Context, path string) ([]*Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE file_path = ? ORDER BY start_line`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) FindSymbolsByName(ctx context.Context, name string, limit int) ([]*Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE name = ? LIMIT ?`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) ListAllSymbolIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM symbols`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func edgeKindPlaceholders(kinds []EdgeKind) (string, []any) {
	if len(kinds) == 0 {
		return "", nil
	}
	ph := ""
	args := make([]any, len(kinds))
	for i, k := range kinds {
		if i > 0 {
			ph += ","
		}
		ph += "?"
		args[i] = string(k)
	}
	return ph, args
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	var out []*Edge
	for rows.Next() {
		var e Edge
		var kind, resolution string
		if err := rows.Scan(&e.FromSymbolID, &e.ToSymbolID, &kind, &e.AtFile, &e.AtLine, &e.EvidenceCount, &resolution); err != nil {
			return nil, err
		}
		e.Kind = EdgeKind(kind)
		e.Resolution = EdgeResolution(resolution)
		out = append(out, &e)
	}
	return out, rows.Err()
}

const edgeColumns = `from_symbol_id,to_symbol_id,kind,at_file,at_line,evidence_count,resolution`

func (s *SQLiteMetadataStore) GetEdgesFrom(ctx context.Context, symbolID string, kinds []EdgeKind) ([]*Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM edges WHERE from_symbol_id = ?`
	args := []any{symbolID}
	if ph, kargs := edgeKindPlaceholders(kinds); ph != "" {
		query += ` AND kind IN (` + ph + `)`
		args = append(args, kargs...)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *SQLiteMetadataStore) GetEdgesTo(ctx context.Context, symbolID string, kinds []EdgeKind) ([]*Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM edges WHERE to_symbol_id = ?`
	args := []any{symbolID}
	if ph, kargs := edgeKindPlaceholders(kinds); ph != "" {
		query += ` AND kind IN (` + ph + `)`
		args = append(args, kargs...)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *SQLiteMetadataStore) AllEdges(ctx context.Context) ([]*Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *SQLiteMetadataStore) GetDocstring(ctx context.Context, symbolID string) (*Docstring, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol_id,summary,params,returns,examples,tags FROM docstrings WHERE symbol_id = ?`, symbolID)
	var d Docstring
	var summary, params, returns, examples, tags sql.NullString
	if err := row.Scan(&d.SymbolID, &summary, &params, &returns, &examples, &tags); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	d.Summary, d.Params, d.Returns, d.Examples, d.Tags = summary.String, params.String, returns.String, examples.String, tags.String
	return &d, nil
}

func (s *SQLiteMetadataStore) GetDecorators(ctx context.Context, symbolID string) ([]*Decorator, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol_id,name,known FROM decorators WHERE symbol_id = ?`, symbolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Decorator
	for rows.Next() {
		var dec Decorator
		var known int
		if err := rows.Scan(&dec.SymbolID, &dec.Name, &known); err != nil {
			return nil, err
		}
		dec.Known = known != 0
		out = append(out, &dec)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) SearchDecorators(ctx context.Context, name string, limit int) ([]*Decorator, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol_id,name,known FROM decorators WHERE name = ? LIMIT ?`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Decorator
	for rows.Next() {
		var dec Decorator
		var known int
		if err := rows.Scan(&dec.SymbolID, &dec.Name, &known); err != nil {
			return nil, err
		}
		dec.Known = known != 0
		out = append(out, &dec)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) SearchTODOs(ctx context.Context, keyword string, limit int) ([]*TODOEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path,line,keyword,text,symbol_id FROM todos WHERE keyword = ? ORDER BY file_path, line LIMIT ?`,
		keyword, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*TODOEntry
	for rows.Next() {
		var td TODOEntry
		var symID sql.NullString
		if err := rows.Scan(&td.FilePath, &td.Line, &td.Keyword, &td.Text, &symID); err != nil {
			return nil, err
		}
		td.SymbolID = symID.String
		out = append(out, &td)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) FindTestsForSymbol(ctx context.Context, symbolID string) ([]*TestLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_file_path,subject_file_path,subject_symbol_id FROM test_links WHERE subject_symbol_id = ?`, symbolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*TestLink
	for rows.Next() {
		var tl TestLink
		var symID sql.NullString
		if err := rows.Scan(&tl.TestFilePath, &tl.SubjectFilePath, &symID); err != nil {
			return nil, err
		}
		tl.SubjectSymbolID = symID.String
		out = append(out, &tl)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) SaveTestLinks(ctx context.Context, links []*TestLink) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for _, l := range links {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO test_links(test_file_path,subject_file_path,subject_symbol_id) VALUES (?,?,?)`,
				l.TestFilePath, l.SubjectFilePath, nullIfEmpty(l.SubjectSymbolID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteMetadataStore) GetMetrics(ctx context.Context, symbolIDs []string) (map[string]*SymbolMetrics, error) {
	out := make(map[string]*SymbolMetrics, len(symbolIDs))
	if len(symbolIDs) == 0 {
		return out, nil
	}
	ph := make([]any, len(symbolIDs))
	placeholders := ""
	for i, id := range symbolIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		ph[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol_id,pagerank,popularity_count,normalized_pagerank FROM symbol_metrics WHERE symbol_id IN (`+placeholders+`)`, ph...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m SymbolMetrics
		if err := rows.Scan(&m.SymbolID, &m.PageRank, &m.PopularityCount, &m.NormalizedPageRank); err != nil {
			return nil, err
		}
		out[m.SymbolID] = &m
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) SetMetrics(ctx context.Context, metrics []*SymbolMetrics) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for _, m := range metrics {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO symbol_metrics(symbol_id,pagerank,popularity_count,normalized_pagerank) VALUES (?,?,?,?)`,
				m.SymbolID, m.PageRank, m.PopularityCount, m.NormalizedPageRank); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteMetadataStore) SavePackage(ctx context.Context, pkg *Package) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO packages(id,name,version,manifest_path,ecosystem,root_dir,repo_id) VALUES (?,?,?,?,?,?,?)`,
			pkg.ID, pkg.Name, nullIfEmpty(pkg.Version), pkg.ManifestPath, pkg.Ecosystem, pkg.RootDir, pkg.RepoID)
		return err
	})
}

func (s *SQLiteMetadataStore) SaveRepository(ctx context.Context, repo *Repository) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO repositories(id,root) VALUES (?,?)`, repo.ID, repo.Root)
		return err
	})
}

func scanPackage(row interface{ Scan(...any) error }) (*Package, error) {
	var p Package
	var version sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &version, &p.ManifestPath, &p.Ecosystem, &p.RootDir, &p.RepoID); err != nil {
		return nil, err
	}
	p.Version = version.String
	return &p, nil
}

const packageColumns = `id,name,version,manifest_path,ecosystem,root_dir,repo_id`

// GetPackageForFile finds the package whose root_dir is the longest prefix
// of path, mirroring manifest-boundary resolution (closest enclosing
// manifest wins).
func (s *SQLiteMetadataStore) GetPackageForFile(ctx context.Context, path string) (*Package, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var best *Package
	bestLen := -1
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		if len(p.RootDir) > bestLen && (path == p.RootDir || hasPathPrefix(path, p.RootDir)) {
			best = p
			bestLen = len(p.RootDir)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if best == nil {
		return nil, cierrors.New(cierrors.CodeNotFoundSymbol, "no package found for file: "+path, nil)
	}
	return best, nil
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) <= len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix && (prefix == "" || path[len(prefix)] == '/')
}

func (s *SQLiteMetadataStore) BatchGetSymbolPackages(ctx context.Context, symbolIDs []string) (map[string]*Package, error) {
	out := make(map[string]*Package, len(symbolIDs))
	if len(symbolIDs) == 0 {
		return out, nil
	}
	placeholders := ""
	args := make([]any, len(symbolIDs))
	for i, id := range symbolIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, p.`+packageColumns+` FROM symbols s JOIN packages p ON p.id = s.package_id WHERE s.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var symID string
		var p Package
		var version sql.NullString
		if err := rows.Scan(&symID, &p.ID, &p.Name, &version, &p.ManifestPath, &p.Ecosystem, &p.RootDir, &p.RepoID); err != nil {
			return nil, err
		}
		p.Version = version.String
		out[symID] = &p
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) RecordSelection(ctx context.Context, sel *QuerySelection) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO query_selections(query_text,query_normalized,selected_symbol_id,position,created_at) VALUES (?,?,?,?,?)`,
			sel.QueryText, sel.QueryNormalized, sel.SelectedSymbolID, sel.Position, sel.CreatedAt.Format(time.RFC3339Nano))
		return err
	})
}

func (s *SQLiteMetadataStore) GetSelectionsForNormalizedQuery(ctx context.Context, normalized string, limit int) ([]*QuerySelection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_text,query_normalized,selected_symbol_id,position,created_at FROM query_selections
		 WHERE query_normalized = ? ORDER BY created_at DESC LIMIT ?`, normalized, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*QuerySelection
	for rows.Next() {
		var sel QuerySelection
		var createdAt string
		if err := rows.Scan(&sel.QueryText, &sel.QueryNormalized, &sel.SelectedSymbolID, &sel.Position, &createdAt); err != nil {
			return nil, err
		}
		sel.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, &sel)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) GetFileAffinity(ctx context.Context, path string) (*FileAffinity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT file_path,view_count,edit_count,last_accessed_at FROM file_affinity WHERE file_path = ?`, path)
	var fa FileAffinity
	var lastAccessed sql.NullString
	if err := row.Scan(&fa.FilePath, &fa.ViewCount, &fa.EditCount, &lastAccessed); err != nil {
		if err == sql.ErrNoRows {
			return &FileAffinity{FilePath: path}, nil
		}
		return nil, err
	}
	if lastAccessed.Valid {
		fa.LastAccessedAt, _ = time.Parse(time.RFC3339Nano, lastAccessed.String)
	}
	return &fa, nil
}

func (s *SQLiteMetadataStore) incrementFileAffinity(ctx context.Context, path, column string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO file_affinity(file_path,`+column+`,last_accessed_at) VALUES (?,1,?)
			 ON CONFLICT(file_path) DO UPDATE SET `+column+` = `+column+` + 1, last_accessed_at = excluded.last_accessed_at`,
			path, time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
}

func (s *SQLiteMetadataStore) IncrementFileView(ctx context.Context, path string) error {
	return s.incrementFileAffinity(ctx, path, "view_count")
}

func (s *SQLiteMetadataStore) IncrementFileEdit(ctx context.Context, path string) error {
	return s.incrementFileAffinity(ctx, path, "edit_count")
}

func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv_state(key,value) VALUES (?,?)`, key, value)
		return err
	})
}

func (s *SQLiteMetadataStore) SaveCheckpoint(ctx context.Context, cp *IndexCheckpoint) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		fields := map[string]string{
			StateKeyCheckpointStage:     cp.Stage,
			StateKeyCheckpointTotal:     fmt.Sprintf("%d", cp.Total),
			StateKeyCheckpointEmbedded:  fmt.Sprintf("%d", cp.EmbeddedCount),
			StateKeyCheckpointModel:     cp.EmbedderModel,
			StateKeyCheckpointUpdatedAt: cp.UpdatedAt.Format(time.RFC3339Nano),
		}
		for k, v := range fields {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv_state(key,value) VALUES (?,?)`, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteMetadataStore) LoadCheckpoint(ctx context.Context) (*IndexCheckpoint, error) {
	stage, ok, err := s.GetState(ctx, StateKeyCheckpointStage)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	cp := &IndexCheckpoint{Stage: stage}
	if v, _, _ := s.GetState(ctx, StateKeyCheckpointTotal); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &cp.Total)
	}
	if v, _, _ := s.GetState(ctx, StateKeyCheckpointEmbedded); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &cp.EmbeddedCount)
	}
	cp.EmbedderModel, _, _ = s.GetState(ctx, StateKeyCheckpointModel)
	if v, _, _ := s.GetState(ctx, StateKeyCheckpointUpdatedAt); v != "" {
		cp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	return cp, nil
}

func (s *SQLiteMetadataStore) ClearCheckpoint(ctx context.Context) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for _, k := range []string{
			StateKeyCheckpointStage, StateKeyCheckpointTotal, StateKeyCheckpointEmbedded,
			StateKeyCheckpointModel, StateKeyCheckpointUpdatedAt,
		} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

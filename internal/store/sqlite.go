package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"rlm/internal/model"
)

// SQLiteStore implements Store using SQLite with FTS5.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// NewSQLiteStore opens or creates the database at dbPath, applies the
// schema, and runs the one-time legacy JSON import if an old index
// file is present next to it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// modernc.org/sqlite serializes on a single connection; more than
	// one writer connection trips SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.importLegacyJSON(dir); err != nil {
		db.Close()
		return nil, fmt.Errorf("legacy import: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id          TEXT PRIMARY KEY,
		summary     TEXT NOT NULL,
		tags        TEXT NOT NULL DEFAULT '[]',
		timestamp   REAL NOT NULL,
		source      TEXT NOT NULL DEFAULT 'text',
		source_name TEXT,
		char_count  INTEGER NOT NULL DEFAULT 0,
		content     TEXT NOT NULL DEFAULT '',
		chunks      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_entries_source_name ON entries(source_name);
	CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp DESC);

	CREATE TABLE IF NOT EXISTS scratchpad (
		id               TEXT PRIMARY KEY,
		label            TEXT NOT NULL DEFAULT '',
		content          TEXT NOT NULL,
		tags             TEXT NOT NULL DEFAULT '[]',
		created_at       REAL NOT NULL,
		expires_at       REAL NOT NULL,
		analysis_session TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 virtual tables do not support IF NOT EXISTS reliably.
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='entries_fts'`).Scan(&name)
	if err == sql.ErrNoRows {
		if _, err := s.db.Exec(`CREATE VIRTUAL TABLE entries_fts USING fts5(
			summary,
			tags,
			content,
			content='entries',
			content_rowid='rowid',
			tokenize='porter unicode61'
		)`); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	triggers := `
	CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
		INSERT INTO entries_fts(rowid, summary, tags, content)
		VALUES (new.rowid, new.summary, new.tags, new.content);
	END;
	CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, summary, tags, content)
		VALUES ('delete', old.rowid, old.summary, old.tags, old.content);
	END;
	CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, summary, tags, content)
		VALUES ('delete', old.rowid, old.summary, old.tags, old.content);
		INSERT INTO entries_fts(rowid, summary, tags, content)
		VALUES (new.rowid, new.summary, new.tags, new.content);
	END;
	`
	_, err = s.db.Exec(triggers)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// classify maps driver errors onto the store's error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint"):
		return fmt.Errorf("%v: %w", err, model.ErrConflict)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "busy"):
		return fmt.Errorf("%v: %w", err, model.ErrBusy)
	default:
		return err
	}
}

func (s *SQLiteStore) writable() error {
	if s.readOnly {
		return fmt.Errorf("store is read-only: %w", model.ErrIndexInconsistency)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, e *model.Entry) error {
	if err := s.writable(); err != nil {
		return err
	}
	if e.ID == "" || e.Content == "" {
		return fmt.Errorf("entry needs id and content: %w", model.ErrInvalidArgument)
	}
	tagsJSON, _ := json.Marshal(normalizeTags(e.Tags))
	var chunksJSON *string
	if len(e.Chunks) > 0 {
		b, _ := json.Marshal(e.Chunks)
		str := string(b)
		chunksJSON = &str
	}
	var sourceName *string
	if e.SourceName != "" {
		sourceName = &e.SourceName
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, summary, tags, timestamp, source, source_name, char_count, content, chunks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Summary, string(tagsJSON), e.Timestamp, e.Source, sourceName,
		e.CharCount, e.Content, chunksJSON)
	if err != nil {
		return fmt.Errorf("insert entry: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, summary, tags, timestamp, source, source_name, char_count, content, chunks
		 FROM entries WHERE id = ?`, id)
	e, err := scanFullEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry not found: %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", classify(err))
	}
	return e, nil
}

func (s *SQLiteStore) GetContent(ctx context.Context, id string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM entries WHERE id = ?`, id).Scan(&content)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("entry not found: %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get content: %w", classify(err))
	}
	return content, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.writable(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Entry, int, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var total int
	var err error
	if len(p.Tags) > 0 {
		placeholders, params := tagArgs(p.Tags)
		err = s.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(DISTINCT e.id) FROM entries e, json_each(e.tags) j
				WHERE j.value IN (%s)`, placeholders), params...).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("count entries: %w", classify(err))
		}
		params = append(params, limit, p.Offset)
		rows, err = s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT DISTINCT e.id, e.summary, e.tags, e.timestamp,
				e.source, e.source_name, e.char_count
				FROM entries e, json_each(e.tags) j
				WHERE j.value IN (%s)
				ORDER BY e.timestamp DESC
				LIMIT ? OFFSET ?`, placeholders), params...)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("count entries: %w", classify(err))
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, summary, tags, timestamp, source, source_name, char_count
			 FROM entries ORDER BY timestamp DESC
			 LIMIT ? OFFSET ?`, limit, p.Offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", classify(err))
	}
	defer rows.Close()

	entries, err := scanMetaEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *SQLiteStore) TagHistogram(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT j.value, COUNT(*) FROM entries e, json_each(e.tags) j
		 GROUP BY j.value
		 ORDER BY COUNT(*) DESC, j.value ASC`)
	if err != nil {
		return nil, fmt.Errorf("tag histogram: %w", classify(err))
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) FindBySourceName(ctx context.Context, name string) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, summary, tags, timestamp, source, source_name, char_count
		 FROM entries WHERE source_name = ?
		 ORDER BY timestamp DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("find by source name: %w", classify(err))
	}
	defer rows.Close()
	return scanMetaEntries(rows)
}

func (s *SQLiteStore) DeleteBySourceName(ctx context.Context, name string) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE source_name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("delete by source name: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CheckConsistency compares the FTS row count to the entries table.
// On drift the store flips to read-only until repaired.
func (s *SQLiteStore) CheckConsistency(ctx context.Context) error {
	var entries, fts int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&entries); err != nil {
		return classify(err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries_fts`).Scan(&fts); err != nil {
		return classify(err)
	}
	if entries != fts {
		s.readOnly = true
		return fmt.Errorf("entries=%d fts=%d: %w", entries, fts, model.ErrIndexInconsistency)
	}
	return nil
}

// RebuildFTS reconstructs the FTS index from the entries table and
// clears the read-only flag.
func (s *SQLiteStore) RebuildFTS(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO entries_fts(entries_fts) VALUES('rebuild')`); err != nil {
		return classify(err)
	}
	s.readOnly = false
	return nil
}

// --- row scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFullEntry(row rowScanner) (*model.Entry, error) {
	var e model.Entry
	var tagsJSON string
	var sourceName, chunksJSON sql.NullString
	err := row.Scan(&e.ID, &e.Summary, &tagsJSON, &e.Timestamp, &e.Source,
		&sourceName, &e.CharCount, &e.Content, &chunksJSON)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(tagsJSON), &e.Tags)
	if sourceName.Valid {
		e.SourceName = sourceName.String
	}
	if chunksJSON.Valid && chunksJSON.String != "" {
		json.Unmarshal([]byte(chunksJSON.String), &e.Chunks)
	}
	return &e, nil
}

func scanMetaEntries(rows *sql.Rows) ([]model.Entry, error) {
	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		var tagsJSON string
		var sourceName sql.NullString
		err := rows.Scan(&e.ID, &e.Summary, &tagsJSON, &e.Timestamp, &e.Source,
			&sourceName, &e.CharCount)
		if err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tagsJSON), &e.Tags)
		if sourceName.Valid {
			e.SourceName = sourceName.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func tagArgs(tags []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	params := make([]any, 0, len(tags))
	for _, t := range tags {
		params = append(params, strings.ToLower(strings.TrimSpace(t)))
	}
	return placeholders, params
}

// normalizeTags lowercases and deduplicates preserving insertion order.
func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

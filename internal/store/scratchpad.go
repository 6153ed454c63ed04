package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rlm/internal/model"
)

// PutScratch inserts or replaces a scratchpad entry.
func (s *SQLiteStore) PutScratch(ctx context.Context, e *ScratchEntry) error {
	if err := s.writable(); err != nil {
		return err
	}
	if e.ID == "" || e.Content == "" {
		return fmt.Errorf("scratch entry needs id and content: %w", model.ErrInvalidArgument)
	}
	tagsJSON, _ := json.Marshal(normalizeTags(e.Tags))
	var session *string
	if e.AnalysisSession != "" {
		session = &e.AnalysisSession
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scratchpad (id, label, content, tags, created_at, expires_at, analysis_session)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Label, e.Content, string(tagsJSON), e.CreatedAt, e.ExpiresAt, session)
	if err != nil {
		return fmt.Errorf("put scratch: %w", classify(err))
	}
	return nil
}

// GetScratch returns a scratchpad entry, expired or not, so callers
// can decide what to do with stale ones.
func (s *SQLiteStore) GetScratch(ctx context.Context, id string) (*ScratchEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, content, tags, created_at, expires_at, analysis_session
		 FROM scratchpad WHERE id = ?`, id)
	e, err := scanScratch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scratch entry not found: %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get scratch: %w", classify(err))
	}
	return e, nil
}

// ListScratch returns scratchpad entries newest first, filtering out
// expired ones unless asked to include them.
func (s *SQLiteStore) ListScratch(ctx context.Context, includeExpired bool) ([]ScratchEntry, error) {
	query := `SELECT id, label, content, tags, created_at, expires_at, analysis_session
		FROM scratchpad`
	args := []any{}
	if !includeExpired {
		query += ` WHERE expires_at > ?`
		args = append(args, nowEpoch())
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scratch: %w", classify(err))
	}
	defer rows.Close()

	var entries []ScratchEntry
	for rows.Next() {
		e, err := scanScratch(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteScratch removes one scratchpad entry.
func (s *SQLiteStore) DeleteScratch(ctx context.Context, id string) (bool, error) {
	if err := s.writable(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM scratchpad WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete scratch: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearScratch removes scratchpad entries, all of them or only the
// expired ones.
func (s *SQLiteStore) ClearScratch(ctx context.Context, expiredOnly bool) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	var res sql.Result
	var err error
	if expiredOnly {
		res, err = s.db.ExecContext(ctx, `DELETE FROM scratchpad WHERE expires_at <= ?`, nowEpoch())
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM scratchpad`)
	}
	if err != nil {
		return 0, fmt.Errorf("clear scratch: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanScratch(row rowScanner) (*ScratchEntry, error) {
	var e ScratchEntry
	var tagsJSON string
	var session sql.NullString
	err := row.Scan(&e.ID, &e.Label, &e.Content, &tagsJSON, &e.CreatedAt, &e.ExpiresAt, &session)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(tagsJSON), &e.Tags)
	if session.Valid {
		e.AnalysisSession = session.String
	}
	return &e, nil
}

func nowEpoch() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

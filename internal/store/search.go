package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"rlm/internal/model"
)

var wordRe = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
var simpleWordRe = regexp.MustCompile(`[a-zA-Z]+`)

// buildMatchExpr turns a natural-language query into an FTS5 MATCH
// expression. Each word is quoted so special characters cannot break
// the syntax; OR casts a wide net and BM25 handles relevance.
func buildMatchExpr(query string) string {
	words := wordRe.FindAllString(strings.ToLower(query), -1)
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) >= 2 {
			quoted = append(quoted, `"`+w+`"`)
		}
	}
	return strings.Join(quoted, " OR ")
}

func buildSimpleMatch(query string) string {
	words := simpleWordRe.FindAllString(strings.ToLower(query), -1)
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) >= 3 {
			quoted = append(quoted, `"`+w+`"`)
		}
	}
	return strings.Join(quoted, " OR ")
}

// Search runs a BM25-ranked full-text match. Column weights are
// summary 3, tags 2, content 1. Rank ascends (FTS5: lower is better)
// with newer timestamps breaking ties; the hit score is the negated
// rank so higher reads as better.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.SearchHit, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, fmt.Errorf("empty query: %w", model.ErrInvalidArgument)
	}
	matchExpr := buildMatchExpr(p.Query)
	if matchExpr == "" {
		return nil, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	var query string
	var args []any
	if len(p.Tags) > 0 {
		placeholders, tagParams := tagArgs(p.Tags)
		query = fmt.Sprintf(`
			SELECT e.id, e.summary, e.tags, e.timestamp, e.source,
			       e.source_name, e.char_count,
			       bm25(entries_fts, 3.0, 2.0, 1.0) AS rank
			FROM entries_fts fts
			JOIN entries e ON e.rowid = fts.rowid
			WHERE entries_fts MATCH ?
			  AND e.id IN (
			      SELECT DISTINCT e2.id FROM entries e2, json_each(e2.tags) j
			      WHERE j.value IN (%s)
			  )
			ORDER BY rank, e.timestamp DESC
			LIMIT ?`, placeholders)
		args = append(args, matchExpr)
		args = append(args, tagParams...)
		args = append(args, limit)
	} else {
		query = `
			SELECT e.id, e.summary, e.tags, e.timestamp, e.source,
			       e.source_name, e.char_count,
			       bm25(entries_fts, 3.0, 2.0, 1.0) AS rank
			FROM entries_fts fts
			JOIN entries e ON e.rowid = fts.rowid
			WHERE entries_fts MATCH ?
			ORDER BY rank, e.timestamp DESC
			LIMIT ?`
		args = append(args, matchExpr, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		// Invalid FTS syntax from exotic input falls back to a very
		// simple term expression.
		simple := buildSimpleMatch(p.Query)
		if simple == "" {
			return nil, nil
		}
		args[0] = simple
		rows, err = s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("search: %w", classify(err))
		}
	}
	defer rows.Close()

	var hits []model.SearchHit
	for rows.Next() {
		var h model.SearchHit
		var tagsJSON string
		var sourceName sql.NullString
		var rank float64
		err := rows.Scan(&h.ID, &h.Summary, &tagsJSON, &h.Timestamp, &h.Source,
			&sourceName, &h.CharCount, &rank)
		if err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tagsJSON), &h.Tags)
		if sourceName.Valid {
			h.SourceName = sourceName.String
		}
		h.Score = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Snippet returns an FTS5 snippet over the content column for one
// matching entry. Missing matches return "" without error.
func (s *SQLiteStore) Snippet(ctx context.Context, query, id string) (string, error) {
	matchExpr := buildMatchExpr(query)
	if matchExpr == "" {
		return "", nil
	}
	var snippet string
	err := s.db.QueryRowContext(ctx,
		`SELECT snippet(entries_fts, 2, '>>>', '<<<', '...', 30)
		 FROM entries_fts fts
		 JOIN entries e ON e.rowid = fts.rowid
		 WHERE entries_fts MATCH ? AND e.id = ?`,
		matchExpr, id).Scan(&snippet)
	if err != nil {
		return "", nil
	}
	return snippet, nil
}

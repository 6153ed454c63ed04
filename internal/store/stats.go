package store

import (
	"context"
	"fmt"
	"os"
)

// Stats aggregates store-wide statistics for the stats command.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		BySource: map[string]int{},
		SizeDist: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(char_count), 0),
		       COALESCE(AVG(char_count), 0),
		       COALESCE(MIN(char_count), 0),
		       COALESCE(MAX(char_count), 0),
		       COALESCE(MIN(timestamp), 0),
		       COALESCE(MAX(timestamp), 0)
		FROM entries`).Scan(
		&st.TotalEntries, &st.TotalChars, &st.AvgChars, &st.MinChars,
		&st.MaxChars, &st.OldestTS, &st.NewestTS)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", classify(err))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM entries GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("stats by source: %w", classify(err))
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		st.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts, err := s.TagHistogram(ctx)
	if err != nil {
		return nil, err
	}
	st.UniqueTags = len(counts)
	if len(counts) > 15 {
		counts = counts[:15]
	}
	st.TopTags = counts

	var small, medium, large, huge int
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN char_count < 2048 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN char_count >= 2048 AND char_count < 10240 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN char_count >= 10240 AND char_count < 51200 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN char_count >= 51200 THEN 1 ELSE 0 END), 0)
		FROM entries`).Scan(
		&small, &medium, &large, &huge)
	if err != nil {
		return nil, fmt.Errorf("stats sizes: %w", classify(err))
	}
	st.SizeDist["small"] = small
	st.SizeDist["medium"] = medium
	st.SizeDist["large"] = large
	st.SizeDist["huge"] = huge

	if info, err := os.Stat(s.path); err == nil {
		st.DBFileSize = info.Size()
	}
	return st, nil
}

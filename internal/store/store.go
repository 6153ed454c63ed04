// Package store provides the persistent memory storage interface and
// its SQLite FTS5 implementation.
package store

import (
	"context"

	"rlm/internal/model"
)

// SearchParams holds parameters for full-text search.
type SearchParams struct {
	Query string
	Tags  []string
	Limit int
}

// ListParams holds parameters for chronological listing.
type ListParams struct {
	Tags   []string
	Offset int
	Limit  int
}

// TagCount is one row of the tag histogram.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats aggregates store-wide numbers for the stats command.
type Stats struct {
	TotalEntries int            `json:"total_entries"`
	TotalChars   int64          `json:"total_chars"`
	AvgChars     int64          `json:"avg_chars"`
	MinChars     int            `json:"min_chars"`
	MaxChars     int            `json:"max_chars"`
	OldestTS     float64        `json:"oldest_timestamp"`
	NewestTS     float64        `json:"newest_timestamp"`
	BySource     map[string]int `json:"by_source"`
	TopTags      []TagCount     `json:"top_tags"`
	UniqueTags   int            `json:"unique_tags"`
	SizeDist     map[string]int `json:"size_distribution"`
	DBFileSize   int64          `json:"db_file_size"`
}

// ScratchEntry is a short-lived working-memory record with a TTL.
type ScratchEntry struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	CreatedAt       float64  `json:"created_at"`
	ExpiresAt       float64  `json:"expires_at"`
	AnalysisSession string   `json:"analysis_session,omitempty"`
}

// Store defines the memory storage interface.
type Store interface {
	// Insert stores a new entry. Duplicate ids are rejected.
	Insert(ctx context.Context, e *model.Entry) error

	// Get retrieves a full entry including content.
	Get(ctx context.Context, id string) (*model.Entry, error)

	// GetContent retrieves only an entry's content.
	GetContent(ctx context.Context, id string) (string, error)

	// Delete removes an entry. Absent ids are a no-op.
	Delete(ctx context.Context, id string) (bool, error)

	// Search runs a BM25-ranked full-text match, best first.
	Search(ctx context.Context, p SearchParams) ([]model.SearchHit, error)

	// Snippet returns an FTS5 match snippet for one entry, or "".
	Snippet(ctx context.Context, query, id string) (string, error)

	// List returns metadata-only entries newest first plus the total
	// count for the filter.
	List(ctx context.Context, p ListParams) ([]model.Entry, int, error)

	// TagHistogram returns tag frequencies, most frequent first.
	TagHistogram(ctx context.Context) ([]TagCount, error)

	// FindBySourceName returns metadata for entries sharing a source
	// name, newest first.
	FindBySourceName(ctx context.Context, name string) ([]model.Entry, error)

	// DeleteBySourceName removes every entry with the source name.
	DeleteBySourceName(ctx context.Context, name string) (int, error)

	// Stats aggregates store-wide statistics.
	Stats(ctx context.Context) (*Stats, error)

	// CheckConsistency verifies the FTS row count matches the entries
	// table. On drift the store goes read-only.
	CheckConsistency(ctx context.Context) error

	// Scratchpad operations.
	PutScratch(ctx context.Context, e *ScratchEntry) error
	GetScratch(ctx context.Context, id string) (*ScratchEntry, error)
	ListScratch(ctx context.Context, includeExpired bool) ([]ScratchEntry, error)
	DeleteScratch(ctx context.Context, id string) (bool, error)
	ClearScratch(ctx context.Context, expiredOnly bool) (int, error)

	Close() error
}

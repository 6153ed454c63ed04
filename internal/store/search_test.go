package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rlm/internal/model"
)

func TestSearchFindsBySummaryToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, testEntry("a", "debugging the auth middleware", "nothing relevant here", "auth"))
	s.Insert(ctx, testEntry("b", "grocery list", "milk and eggs", "personal"))

	hits, err := s.Search(ctx, SearchParams{Query: "auth middleware"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Summary == "" || hits[0].CharCount == 0 {
		t.Errorf("hit metadata not populated: %+v", hits[0])
	}
}

func TestSearchPorterStemming(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, testEntry("a", "refactoring the chunker", "split chunking into strategies"))

	hits, err := s.Search(ctx, SearchParams{Query: "refactor chunk"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("stemmed query should match, got %d hits", len(hits))
	}
}

func TestSearchRankingPrefersMoreMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, testEntry("both", "sqlite fts index tuning", "rebuilt the sqlite fts index twice"))
	s.Insert(ctx, testEntry("one", "sqlite pragma notes", "journal mode and busy timeout"))

	hits, err := s.Search(ctx, SearchParams{Query: "sqlite fts"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].ID != "both" {
		t.Errorf("entry matching both terms should rank first, got %s", hits[0].ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores not descending: %f then %f", hits[0].Score, hits[1].Score)
	}
}

func TestSearchTagFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, testEntry("tagged", "session notes about caching", "cache invalidation", "project-x"))
	s.Insert(ctx, testEntry("untagged", "more notes about caching", "cache warming", "project-y"))

	hits, err := s.Search(ctx, SearchParams{Query: "caching", Tags: []string{"project-x"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "tagged" {
		t.Errorf("tag filter leaked: %+v", hits)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), SearchParams{Query: "   "})
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSearchExoticInputDoesNotError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Insert(ctx, testEntry("a", "plain entry", "plain content"))

	// Punctuation-heavy queries must not surface FTS syntax errors.
	hits, err := s.Search(ctx, SearchParams{Query: `"NEAR(" AND plain*`})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	_ = hits
}

func TestSearchLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		s.Insert(ctx, testEntry(id, "common keyword entry", "shared body text"))
	}
	hits, err := s.Search(ctx, SearchParams{Query: "keyword", Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("limit not applied, got %d", len(hits))
	}
}

func TestSnippet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content := strings.Repeat("padding words before the target. ", 20) +
		"the migration needed a rebuild step." +
		strings.Repeat(" padding words after the target.", 20)
	s.Insert(ctx, testEntry("a", "migration notes", content))

	snip, err := s.Snippet(ctx, "migration rebuild", "a")
	if err != nil {
		t.Fatalf("snippet: %v", err)
	}
	if !strings.Contains(snip, ">>>") {
		t.Errorf("snippet missing highlight markers: %q", snip)
	}
	if len(snip) >= len(content) {
		t.Error("snippet should be shorter than the content")
	}

	snip, err = s.Snippet(ctx, "zzz_absent", "a")
	if err != nil || snip != "" {
		t.Errorf("no-match snippet = %q, %v", snip, err)
	}
}

func TestSearchRankStableUnderDuplicateInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, testEntry("strong", "scheduler deadlock analysis", "the scheduler deadlock reproduces under load"))
	s.Insert(ctx, testEntry("weak", "misc notes", "one passing mention of the scheduler"))

	rankOf := func(id string) int {
		t.Helper()
		hits, err := s.Search(ctx, SearchParams{Query: "scheduler deadlock"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		for i, h := range hits {
			if h.ID == id {
				return i
			}
		}
		t.Fatalf("%s missing from hits: %+v", id, hits)
		return -1
	}

	before := rankOf("strong")
	if before >= rankOf("weak") {
		t.Fatalf("strong entry should outrank the weak one, got rank %d", before)
	}

	// A copy of the same text must not push the original below an
	// unrelated entry.
	s.Insert(ctx, testEntry("copy", "scheduler deadlock analysis", "the scheduler deadlock reproduces under load"))

	if after := rankOf("strong"); after >= rankOf("weak") {
		t.Errorf("duplicate insert demoted the original: rank %d -> %d", before, after)
	}
}

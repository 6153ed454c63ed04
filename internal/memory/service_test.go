package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"rlm/internal/model"
	"rlm/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, nil)
}

func TestRememberThenRecall(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e, err := svc.Remember(ctx, RememberParams{
		Content: "The tokenizer rejects unterminated strings at line 42.",
		Tags:    []string{"tokenizer", "bug"},
	})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if !strings.HasPrefix(e.ID, "m_") || len(e.ID) != 14 {
		t.Errorf("id = %q", e.ID)
	}
	if e.Summary == "" {
		t.Error("summary should be generated")
	}

	out, err := svc.Recall(ctx, "tokenizer unterminated", nil, 20)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !strings.Contains(out, e.ID) {
		t.Errorf("recall missing stored entry:\n%s", out)
	}
	if !strings.Contains(out, "Found 1 matching memories") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "(54 chars, small)") {
		t.Errorf("size hint missing:\n%s", out)
	}
}

func TestRecallNoMatches(t *testing.T) {
	svc := newTestService(t)
	out, err := svc.Recall(context.Background(), "nothing stored yet", nil, 20)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if out != "No matching memories found." {
		t.Errorf("got %q", out)
	}
}

func TestRememberEmptyContent(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Remember(context.Background(), RememberParams{})
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRememberChunksLargeContent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString(strings.Repeat("paragraph body words here. ", 100))
		b.WriteString("\n\n")
	}
	e, err := svc.Remember(ctx, RememberParams{Content: b.String()})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if len(e.Chunks) < 2 {
		t.Fatalf("large content should be chunked, got %d chunks", len(e.Chunks))
	}
	for _, c := range e.Chunks {
		if !strings.HasPrefix(c.ChunkID, "mc_") {
			t.Errorf("chunk id = %q", c.ChunkID)
		}
		if c.EndChar <= c.StartChar {
			t.Errorf("empty chunk range: %+v", c)
		}
	}

	// Chunk extraction returns exactly the chunk's char range.
	out, err := svc.Extract(ctx, ExtractParams{ID: e.ID, ChunkID: e.Chunks[1].ChunkID})
	if err != nil {
		t.Fatalf("extract chunk: %v", err)
	}
	if len(out) != e.Chunks[1].EndChar-e.Chunks[1].StartChar {
		t.Errorf("chunk slice is %d chars, want %d", len(out), e.Chunks[1].EndChar-e.Chunks[1].StartChar)
	}
}

func TestExtractModes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	content := "alpha\nthe SECRET value\nbeta\ngamma\n"
	e, err := svc.Remember(ctx, RememberParams{Content: content})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	full, err := svc.Extract(ctx, ExtractParams{ID: e.ID})
	if err != nil || full != content {
		t.Errorf("full extract = %q, %v", full, err)
	}

	grep, err := svc.Extract(ctx, ExtractParams{ID: e.ID, Grep: "secret", Context: 1})
	if err != nil {
		t.Fatalf("grep extract: %v", err)
	}
	if !strings.Contains(grep, "SECRET value") || !strings.Contains(grep, ">>") {
		t.Errorf("grep output:\n%s", grep)
	}

	none, err := svc.Extract(ctx, ExtractParams{ID: e.ID, Grep: "zzz_absent"})
	if err != nil {
		t.Fatalf("grep extract: %v", err)
	}
	if !strings.Contains(none, "No matches found") {
		t.Errorf("no-match output: %q", none)
	}

	if _, err := svc.Extract(ctx, ExtractParams{ID: e.ID, ChunkID: "mc_bogus"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown chunk: got %v", err)
	}
	if _, err := svc.Extract(ctx, ExtractParams{ID: "m_missing"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown entry: got %v", err)
	}
}

func TestForget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e, _ := svc.Remember(ctx, RememberParams{Content: "ephemeral"})
	if err := svc.Forget(ctx, e.ID); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if err := svc.Forget(ctx, e.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeduplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	content := "session transcript body"

	d, err := svc.Deduplicate(ctx, "s_abc12345", content)
	if err != nil || d.Action != "store" {
		t.Fatalf("fresh session: %+v, %v", d, err)
	}

	e, _ := svc.Remember(ctx, RememberParams{Content: content, Tags: []string{"s_abc12345"}})

	// Same content within the window: skip.
	d, err = svc.Deduplicate(ctx, "s_abc12345", content)
	if err != nil || d.Action != "skip" {
		t.Errorf("identical re-archive: %+v, %v", d, err)
	}

	// Grown transcript: replace the stale entries.
	d, err = svc.Deduplicate(ctx, "s_abc12345", content+"\nmore turns")
	if err != nil || d.Action != "replace" {
		t.Fatalf("grown transcript: %+v, %v", d, err)
	}
	if len(d.ReplaceIDs) != 1 || d.ReplaceIDs[0] != e.ID {
		t.Errorf("replace ids = %v", d.ReplaceIDs)
	}
}

func TestSizeCategory(t *testing.T) {
	cases := map[int]string{
		0:      "small",
		2047:   "small",
		2048:   "medium",
		10239:  "medium",
		10240:  "large",
		51199:  "large",
		51200:  "huge",
		500000: "huge",
	}
	for chars, want := range cases {
		if got := SizeCategory(chars); got != want {
			t.Errorf("SizeCategory(%d) = %s, want %s", chars, got, want)
		}
	}
}

func TestAutoTags(t *testing.T) {
	content := strings.Repeat("database migration ", 3) + "database once-word and the for with"
	tags := AutoTags(content)
	if len(tags) < 2 {
		t.Fatalf("tags = %v", tags)
	}
	if tags[0] != "database" {
		t.Errorf("most frequent first: %v", tags)
	}
	for _, tag := range tags {
		if tag == "the" || tag == "with" || tag == "for" {
			t.Errorf("stop word leaked: %v", tags)
		}
		if tag == "once" {
			t.Errorf("single-occurrence word leaked: %v", tags)
		}
	}
}

func TestAutoSummary(t *testing.T) {
	got := AutoSummary("\n\n## Fixing the *parser*\nrest of body")
	if got != "Fixing the parser" {
		t.Errorf("markdown not stripped: %q", got)
	}

	long := strings.Repeat("word ", 40)
	got = AutoSummary(long)
	if len(got) > 80 {
		t.Errorf("summary too long: %d chars", len(got))
	}
	if strings.HasSuffix(got, "wor") {
		t.Errorf("should break at word boundary: %q", got)
	}

	if AutoSummary("") != "(empty)" {
		t.Errorf("empty content: %q", AutoSummary(""))
	}
}

func TestListFormatting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Remember(ctx, RememberParams{
			Content: strings.Repeat("entry body text ", 10),
			Summary: "listable entry",
			Tags:    []string{"listed"},
		})
	}
	out, err := svc.List(ctx, []string{"listed"}, 0, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Memory Store: 3 entries total") {
		t.Errorf("header:\n%s", out)
	}
	if strings.Count(out, "listable entry") != 3 {
		t.Errorf("entries missing:\n%s", out)
	}
	if len(out) > 4000 {
		t.Errorf("listing exceeds cap: %d", len(out))
	}
}

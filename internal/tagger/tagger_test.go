package tagger

import (
	"context"
	"strings"
	"testing"
)

func TestKeywordTagsWhitelist(t *testing.T) {
	transcript := "We tuned the sqlite database twice. sqlite pragmas, then sqlite indexes. " +
		"Also touched the api layer and some miscellaneous plumbing nobody tags."
	tags := KeywordTags(transcript)

	if len(tags) == 0 {
		t.Fatal("no tags extracted")
	}
	if tags[0] != "sqlite" {
		t.Errorf("most frequent keyword should lead: %v", tags)
	}
	found := map[string]bool{}
	for _, tag := range tags {
		found[tag] = true
	}
	if !found["database"] || !found["api"] {
		t.Errorf("whitelist terms missing: %v", tags)
	}
	if found["plumbing"] || found["miscellaneous"] {
		t.Errorf("non-whitelisted words leaked: %v", tags)
	}
}

func TestKeywordTagsPatternTags(t *testing.T) {
	tags := KeywordTags("we need to fix the flaky integration suite and refactor the runner")

	found := map[string]bool{}
	for _, tag := range tags {
		found[tag] = true
	}
	if !found["bug-fix"] {
		t.Errorf("fix language should add bug-fix: %v", tags)
	}
	if !found["refactoring"] {
		t.Errorf("refactor language should add refactoring: %v", tags)
	}
}

func TestKeywordTagsCap(t *testing.T) {
	var b strings.Builder
	for word := range techKeywords {
		b.WriteString(word + " ")
	}
	tags := KeywordTags(b.String() + " fix test refactor")
	if len(tags) > maxTags {
		t.Errorf("got %d tags, cap is %d", len(tags), maxTags)
	}
}

func TestFallbackTaggerNeedsNoNetwork(t *testing.T) {
	tg, err := New(context.Background(), "", "", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tags := tg.SemanticTags(context.Background(), "debugging the mcp server cache")
	if len(tags) == 0 {
		t.Error("fallback tagger returned nothing")
	}
	if tg.Summarize(context.Background(), "[10:00] User:\nshort note") == "" {
		t.Error("fallback summary empty")
	}
}

func TestParseTagResponse(t *testing.T) {
	tags := parseTagResponse("sqlite, Hooks , the, ab, MCP-Server,,debugging")
	want := []string{"sqlite", "hooks", "mcp-server", "debugging"}
	if len(tags) != len(want) {
		t.Fatalf("got %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestParseTagResponseStripsFences(t *testing.T) {
	response := "```\nsqlite,hooks,debugging\n```"
	tags := parseTagResponse(response)
	if len(tags) != 3 || tags[0] != "sqlite" {
		t.Errorf("fenced response not unwrapped: %v", tags)
	}
}

func TestParseTagResponseCap(t *testing.T) {
	parts := make([]string, 20)
	for i := range parts {
		parts[i] = strings.Repeat("tag", 2) + string(rune('a'+i))
	}
	tags := parseTagResponse(strings.Join(parts, ","))
	if len(tags) != maxTags {
		t.Errorf("got %d tags, want %d", len(tags), maxTags)
	}
}

func TestTruncateMiddle(t *testing.T) {
	text := strings.Repeat("a", 6000) + strings.Repeat("z", 6000)
	got := truncateMiddle(text, 10000)
	if len(got) > 10000+len("\n...[middle truncated]...\n") {
		t.Errorf("truncated length %d", len(got))
	}
	if !strings.HasPrefix(got, "a") || !strings.HasSuffix(got, "z") {
		t.Error("head and tail should both survive")
	}
	if !strings.Contains(got, "[middle truncated]") {
		t.Error("truncation marker missing")
	}

	short := "unchanged"
	if truncateMiddle(short, 100) != short {
		t.Error("short text should pass through")
	}
}

func TestCombineTags(t *testing.T) {
	got := CombineTags([]string{"conversation", "session", " "}, []string{"sqlite", "conversation", "debugging"})
	want := []string{"conversation", "session", "sqlite", "debugging"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSummaryFallbackSections(t *testing.T) {
	transcript := `[10:00] User:
How should we handle token refresh when the session store restarts mid-request?

[10:01] Assistant:
We decided to persist refresh tokens in sqlite so restarts keep sessions alive without re-auth.
[Tool: Write] internal/auth/refresh.go
[Tool: Edit] internal/auth/session.go
[Tool: Bash] git commit -m "persist refresh tokens across restarts"

[10:05] User:
ok
`
	out := summaryFallback(transcript)

	if !strings.Contains(out, "## Session Summary") {
		t.Errorf("summary header missing:\n%s", out)
	}
	if !strings.Contains(out, "Session started with: How should we handle token refresh") {
		t.Errorf("opening question missing:\n%s", out)
	}
	if !strings.Contains(out, "## Key Questions") ||
		!strings.Contains(out, "token refresh when the session store restarts mid-request?") {
		t.Errorf("questions section wrong:\n%s", out)
	}
	if !strings.Contains(out, "## Key Decisions") ||
		!strings.Contains(out, "persist refresh tokens in sqlite") {
		t.Errorf("decisions section wrong:\n%s", out)
	}
	if !strings.Contains(out, "## Commits") ||
		!strings.Contains(out, "persist refresh tokens across restarts") {
		t.Errorf("commits section wrong:\n%s", out)
	}
	if !strings.Contains(out, "## Files Modified") ||
		!strings.Contains(out, "internal/auth/refresh.go") ||
		!strings.Contains(out, "internal/auth/session.go") {
		t.Errorf("files section wrong:\n%s", out)
	}
	if strings.Contains(out, "## Notable Exchanges") {
		t.Errorf("exchanges only belong in thin sessions:\n%s", out)
	}
}

func TestSummaryFallbackThinSession(t *testing.T) {
	transcript := `[09:00] User:
Just poking around the codebase to understand how the chunker picks strategies.

[09:01] Assistant:
The recommendation logic weighs file type and size, markdown leans on headings first.
`
	out := summaryFallback(transcript)
	if !strings.Contains(out, "## Notable Exchanges") {
		t.Errorf("thin session should include exchanges:\n%s", out)
	}
	if !strings.Contains(out, "**User:**") || !strings.Contains(out, "**Assistant:**") {
		t.Errorf("roles missing:\n%s", out)
	}
}

func TestParseTranscript(t *testing.T) {
	messages := parseTranscript("[10:00] User:\nfirst\nsecond line\n\n[10:01] Assistant:\nreply\n")
	if len(messages) != 2 {
		t.Fatalf("got %d messages", len(messages))
	}
	if messages[0].role != "User" || messages[0].text != "first\nsecond line" {
		t.Errorf("first message = %+v", messages[0])
	}
	if messages[1].role != "Assistant" || messages[1].text != "reply" {
		t.Errorf("second message = %+v", messages[1])
	}
}

package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rlm/internal/model"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	require.NoError(t, err)
	return path
}

func TestSessionTranscript(t *testing.T) {
	path := writeLog(t,
		`{"type":"user","timestamp":"2026-08-26T10:00:00Z","message":{"role":"user","content":"can you fix the auth bug? <system-reminder>host noise to drop</system-reminder>"}}`,
		`{"type":"assistant","timestamp":"2026-08-26T10:00:05Z","message":{"role":"assistant","content":[{"type":"text","text":"The bug is in token"}]}}`,
		`{"type":"assistant","timestamp":"2026-08-26T10:00:06Z","message":{"role":"assistant","content":[{"type":"text","text":"The bug is in token parsing, the expiry check is inverted."}]}}`,
		`{"type":"user","timestamp":"2026-08-26T10:01:00Z","message":{"role":"user","content":"ok"}}`,
		`{"type":"assistant","timestamp":"2026-08-26T10:01:10Z","message":{"role":"assistant","content":[{"type":"tool_use","name":"Bash","input":{"command":"git status"}}]}}`,
		`this line is not json`,
		`{"type":"summary","summary":"ignored record type"}`,
	)

	out, err := Session(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Session Transcript (4 messages)\n"), "header: %q", out[:60])
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, "# Warning: skipped 1 malformed records")

	assert.Contains(t, out, "[10:00] User:\ncan you fix the auth bug?")
	assert.NotContains(t, out, "host noise to drop")

	// Streamed assistant run collapses to the longest variant.
	assert.Contains(t, out, "expiry check is inverted")
	assert.Equal(t, 1, strings.Count(out, "The bug is in token"))

	assert.Contains(t, out, "[User confirmed]")
	assert.Contains(t, out, "[Ran 1 tools: Bash]")
}

func TestSessionToolCallSummaries(t *testing.T) {
	path := writeLog(t,
		`{"type":"assistant","timestamp":"2026-08-26T09:00:00Z","message":{"role":"assistant","content":[{"type":"text","text":"Writing the config loader."},{"type":"tool_use","name":"Write","input":{"file_path":"/tmp/config.go","content":"package main"}},{"type":"tool_use","name":"CustomTool","input":{"x":1}}]}}`,
	)

	out, err := Session(path)
	require.NoError(t, err)

	assert.Contains(t, out, "Writing the config loader.")
	assert.Contains(t, out, "[Tool: Write] /tmp/config.go")
	assert.NotContains(t, out, "package main", "tool input bodies are dropped")
	assert.Contains(t, out, "[Tool: CustomTool]")
}

func TestSessionToolResultsDropped(t *testing.T) {
	path := writeLog(t,
		`{"type":"user","timestamp":"2026-08-26T09:00:00Z","message":{"role":"user","content":[{"type":"tool_result","text":"forty pages of build output"},{"type":"text","text":"the build failed again"}]}}`,
	)

	out, err := Session(path)
	require.NoError(t, err)
	assert.Contains(t, out, "the build failed again")
	assert.NotContains(t, out, "forty pages")
}

func TestSessionMissingFile(t *testing.T) {
	_, err := Session("/nonexistent/session.jsonl")
	assert.True(t, errors.Is(err, model.ErrNotFound), "got %v", err)
}

func TestIsTrivialConfirmation(t *testing.T) {
	for _, s := range []string{"ok", "Yes!", "sounds good", "lgtm", "go ahead."} {
		assert.True(t, isTrivialConfirmation(s), "%q should be trivial", s)
	}
	for _, s := range []string{"yes but only after the tests pass", "no", "ok so here is the actual problem I am seeing"} {
		assert.False(t, isTrivialConfirmation(s), "%q should be kept", s)
	}
}

func TestCompressPastedOutput(t *testing.T) {
	lines := []string{"here is what I got:"}
	for i := 0; i < 14; i++ {
		lines = append(lines, "$ error: something broke")
	}
	got := compressPastedOutput(strings.Join(lines, "\n"))
	assert.Contains(t, got, "lines of terminal output")
	assert.Less(t, len(strings.Split(got, "\n")), 10)

	prose := strings.Repeat("a normal paragraph line\n", 15)
	assert.Equal(t, prose, compressPastedOutput(prose), "prose passes through")
}

func TestStripCommandXML(t *testing.T) {
	in := "<command-message>remember</command-message><command-name>/rlm:remember</command-name><command-args>the parser notes</command-args>"
	assert.Equal(t, "/rlm:remember the parser notes", stripCommandXML(in))
	assert.Equal(t, "plain text", stripCommandXML("plain text"))
}

func TestStripBoilerplate(t *testing.T) {
	got := stripBoilerplate("Let me check the handler first. The real issue is the mutex.")
	assert.Equal(t, "The real issue is the mutex.", got)
}

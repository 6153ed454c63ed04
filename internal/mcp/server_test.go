package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rlm/internal/memory"
	"rlm/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewServer(memory.NewService(st, nil), nil)
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// run feeds newline-delimited requests through the server and decodes
// every response line.
func run(t *testing.T, s *Server, requests ...string) []response {
	t.Helper()
	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Run(context.Background(), in, &out))

	var responses []response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var r response
		require.NoError(t, json.Unmarshal([]byte(line), &r), "line: %s", line)
		responses = append(responses, r)
	}
	return responses
}

func toolText(t *testing.T, r response) (string, bool) {
	t.Helper()
	var result toolResult
	require.NoError(t, json.Unmarshal(r.Result, &result))
	require.Len(t, result.Content, 1)
	return result.Content[0].Text, result.IsError
}

func TestInitialize(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Len(t, responses, 1)

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
		Capabilities map[string]json.RawMessage `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Equal(t, "rlm", result.ServerInfo.Name)
	assert.Contains(t, result.Capabilities, "tools")
	assert.Equal(t, "1", string(responses[0].ID))
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Len(t, responses, 1)

	var result struct {
		Tools []toolDef `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Tools, 5)

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description, "%s needs a description", tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
	for _, want := range []string{"rlm_recall", "rlm_remember", "rlm_memory_list", "rlm_memory_extract", "rlm_forget"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestRememberThenRecall(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"rlm_remember","arguments":{"content":"the scheduler deadlocks when two workers share a queue","tags":"scheduler,deadlock"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"rlm_recall","arguments":{"query":"scheduler deadlock"}}}`,
	)
	require.Len(t, responses, 2)

	stored, isErr := toolText(t, responses[0])
	assert.False(t, isErr)
	assert.True(t, strings.HasPrefix(stored, "Stored m_"), "got %q", stored)

	recalled, isErr := toolText(t, responses[1])
	assert.False(t, isErr)
	assert.Contains(t, recalled, "Found 1 matching memories")
	assert.Contains(t, recalled, "scheduler")
}

func TestToolErrorsAreTextNotFailures(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"rlm_forget","arguments":{"entry_id":"m_missing"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"rlm_remember","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"bogus_tool","arguments":{}}}`,
	)
	require.Len(t, responses, 3)

	for i, wantPrefix := range []string{"Error: entry not found", "Error: empty content", "Unknown tool: bogus_tool"} {
		text, isErr := toolText(t, responses[i])
		assert.True(t, isErr, "call %d should flag an error", i)
		assert.True(t, strings.HasPrefix(text, wantPrefix), "call %d: got %q", i, text)
	}
}

func TestMemoryExtractDefaults(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"rlm_remember","arguments":{"content":"l1\nl2\nl3\nl4\nfind THIS line\nl6\nl7\nl8\nl9"}}}`,
	)
	stored, _ := toolText(t, responses[0])
	id := strings.TrimPrefix(strings.SplitN(stored, ":", 2)[0], "Stored ")

	responses = run(t, s,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"rlm_memory_extract","arguments":{"entry_id":"`+id+`","grep":"THIS"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"rlm_memory_extract","arguments":{"entry_id":"`+id+`","grep":"THIS","context":0}}}`,
	)
	require.Len(t, responses, 2)

	withDefault, isErr := toolText(t, responses[0])
	require.False(t, isErr, "%s", withDefault)
	// Default context is 3 lines either side.
	assert.Contains(t, withDefault, "l2")
	assert.Contains(t, withDefault, "l8")
	assert.NotContains(t, withDefault, "l9")

	zeroContext, isErr := toolText(t, responses[1])
	require.False(t, isErr, "%s", zeroContext)
	assert.Contains(t, zeroContext, "THIS")
	assert.NotContains(t, zeroContext, "l4")
}

func TestNotificationsAndUnknownMethods(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled"}`,
		`{"jsonrpc":"2.0","id":7,"method":"resources/list"}`,
		`not json at all`,
		`{"jsonrpc":"2.0","id":8,"method":"initialize"}`,
	)
	// Notifications and garbage produce no responses at all.
	require.Len(t, responses, 2)

	require.NotNil(t, responses[0].Error)
	assert.Equal(t, -32601, responses[0].Error.Code)
	assert.Contains(t, responses[0].Error.Message, "resources/list")
	assert.Equal(t, "7", string(responses[0].ID))

	assert.Nil(t, responses[1].Error)
}

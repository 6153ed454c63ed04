// Package mcp serves memory operations over the Model Context
// Protocol: a JSON-RPC 2.0 loop on stdio, one request per line. Any
// MCP-capable agent can recall, store, and extract memories without
// shelling out to the CLI.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"rlm/internal/memory"
)

const protocolVersion = "2024-11-05"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Server dispatches MCP tool calls onto a memory service.
type Server struct {
	svc *memory.Service
	log *zap.Logger
}

// NewServer returns an MCP server over svc.
func NewServer(svc *memory.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, log: log}
}

// Run reads newline-delimited JSON-RPC requests from r and writes
// responses to w until EOF or context cancellation. Malformed lines
// are skipped; notifications get no response.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.log.Warn("malformed request", zap.Error(err))
			continue
		}
		resp := s.handle(ctx, &req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return sc.Err()
}

func (s *Server) handle(ctx context.Context, req *rpcRequest) *rpcResponse {
	switch req.Method {
	case "initialize":
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]any{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo":      map[string]any{"name": "rlm", "version": "0.1.0"},
			},
		}
	case "tools/list":
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{"tools": tools},
		}
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		json.Unmarshal(req.Params, &params)
		text, isErr := s.callTool(ctx, params.Name, params.Arguments)
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: toolResult{
				Content: []toolContent{{Type: "text", Text: text}},
				IsError: isErr,
			},
		}
	case "notifications/initialized":
		return nil
	default:
		if len(req.ID) == 0 {
			return nil
		}
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: "Method not found: " + req.Method},
		}
	}
}

// callTool runs one memory operation. Errors come back as text so the
// agent sees what went wrong instead of a dead connection.
func (s *Server) callTool(ctx context.Context, name string, arguments json.RawMessage) (string, bool) {
	var args struct {
		Query      string `json:"query"`
		Content    string `json:"content"`
		Tags       string `json:"tags"`
		Summary    string `json:"summary"`
		EntryID    string `json:"entry_id"`
		Grep       string `json:"grep"`
		Context    *int   `json:"context"`
		MaxResults int    `json:"max_results"`
		Limit      int    `json:"limit"`
	}
	json.Unmarshal(arguments, &args)

	switch name {
	case "rlm_recall":
		out, err := s.svc.Recall(ctx, args.Query, splitTags(args.Tags), args.MaxResults)
		if err != nil {
			return "Error: " + err.Error(), true
		}
		return out, false

	case "rlm_remember":
		entry, err := s.svc.Remember(ctx, memory.RememberParams{
			Content: args.Content,
			Tags:    splitTags(args.Tags),
			Summary: args.Summary,
		})
		if err != nil {
			return "Error: " + err.Error(), true
		}
		return fmt.Sprintf("Stored %s: %s", entry.ID, entry.Summary), false

	case "rlm_memory_list":
		out, err := s.svc.List(ctx, splitTags(args.Tags), 0, args.Limit)
		if err != nil {
			return "Error: " + err.Error(), true
		}
		return out, false

	case "rlm_memory_extract":
		grepContext := 3
		if args.Context != nil {
			grepContext = *args.Context
		}
		out, err := s.svc.Extract(ctx, memory.ExtractParams{
			ID:      args.EntryID,
			Grep:    args.Grep,
			Context: grepContext,
		})
		if err != nil {
			return "Error: " + err.Error(), true
		}
		return out, false

	case "rlm_forget":
		if err := s.svc.Forget(ctx, args.EntryID); err != nil {
			return "Error: " + err.Error(), true
		}
		return "Deleted " + args.EntryID, false

	default:
		return "Unknown tool: " + name, true
	}
}

func splitTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var tools = []toolDef{
	{
		Name: "rlm_recall",
		Description: "Search persistent memory for past conversations, decisions, and knowledge. " +
			"Use when the user asks about previous work or when starting on a topic that may " +
			"have prior context. Returns matching entries with relevance scores and size hints.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query: keywords or phrases to look for",
				},
				"tags": map[string]any{
					"type":        "string",
					"description": "Optional comma-separated tags to filter by (e.g. 'conversation,project-name')",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return (default: 10)",
					"default":     10,
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name: "rlm_remember",
		Description: "Store knowledge or a decision in persistent memory for future recall. " +
			"Provide descriptive tags and a clear summary.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The content to store",
				},
				"tags": map[string]any{
					"type":        "string",
					"description": "Comma-separated tags for categorization (e.g. 'architecture,auth,decision')",
				},
				"summary": map[string]any{
					"type":        "string",
					"description": "Short description of what this memory contains (under 80 chars)",
				},
			},
			"required": []string{"content"},
		},
	},
	{
		Name: "rlm_memory_list",
		Description: "Browse the memory store: entry IDs, summaries, tags, and sizes. " +
			"Use to get an overview or to find entries by tag.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tags": map[string]any{
					"type":        "string",
					"description": "Optional comma-separated tags to filter by",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of entries to show (default: 20)",
					"default":     20,
				},
			},
		},
	},
	{
		Name: "rlm_memory_extract",
		Description: "Extract the content of a memory entry by ID, optionally grepping for " +
			"patterns within it. Use after rlm_recall returns entry IDs.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entry_id": map[string]any{
					"type":        "string",
					"description": "The memory entry ID (e.g. 'm_abc123def456')",
				},
				"grep": map[string]any{
					"type":        "string",
					"description": "Optional regex pattern to search within the entry",
				},
				"context": map[string]any{
					"type":        "integer",
					"description": "Lines of context around grep matches (default: 3)",
					"default":     3,
				},
			},
			"required": []string{"entry_id"},
		},
	},
	{
		Name:        "rlm_forget",
		Description: "Delete a specific memory entry by ID.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entry_id": map[string]any{
					"type":        "string",
					"description": "The memory entry ID to delete",
				},
			},
			"required": []string{"entry_id"},
		},
	},
}

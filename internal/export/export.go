// Package export converts raw line-delimited session logs into a
// compact human-readable transcript suitable for memory ingestion.
//
// Compression passes: keep only user/assistant records, collapse
// streamed assistant runs to the longest variant, summarize tool
// invocations to one line and drop their results, strip host reminder
// and hook blocks, fold trivial confirmations, and truncate pasted
// terminal output.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"rlm/internal/model"
)

type message struct {
	role      string
	timestamp string
	texts     []string
	toolCalls []string
	hasText   bool
}

// Session reads a JSONL session log and returns the compressed
// transcript. Malformed records are skipped; a single warning line at
// the top reports how many.
func Session(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("session log not found: %s: %w", path, model.ErrNotFound)
	}
	defer f.Close()

	var messages []message
	malformed := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var record struct {
			Type      string `json:"type"`
			Timestamp string `json:"timestamp"`
			Message   struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			malformed++
			continue
		}
		if record.Type != "user" && record.Type != "assistant" {
			continue
		}
		role := record.Message.Role
		if role == "" {
			role = record.Type
		}

		texts, toolCalls := extractContent(record.Message.Content)
		hasText := false
		var combined []string
		for _, t := range texts {
			if strings.TrimSpace(t) != "" {
				hasText = true
				combined = append(combined, t)
			}
		}
		if !hasText && len(toolCalls) == 0 {
			continue
		}
		// Very short assistant streaming artifacts.
		if role == "assistant" && len(strings.Join(combined, "\n")) < 3 && len(toolCalls) == 0 {
			continue
		}
		messages = append(messages, message{
			role:      role,
			timestamp: record.Timestamp,
			texts:     texts,
			toolCalls: toolCalls,
			hasText:   hasText,
		})
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	deduped := collapseStreamRuns(messages)
	compressed := compressMessages(deduped)

	var b strings.Builder
	fmt.Fprintf(&b, "# Session Transcript (%d messages)\n", len(compressed))
	fmt.Fprintf(&b, "# Source: %s\n", path)
	if malformed > 0 {
		fmt.Fprintf(&b, "# Warning: skipped %d malformed records\n", malformed)
	}
	b.WriteString("\n")
	for _, m := range compressed {
		label := "Assistant"
		if m.role == "user" {
			label = "User"
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", shortTimestamp(m.timestamp), label, m.text)
	}
	return b.String(), nil
}

// collapseStreamRuns keeps only the longest message of each
// consecutive assistant run; streaming emits many incremental copies.
func collapseStreamRuns(messages []message) []message {
	var out []message
	for i := 0; i < len(messages); {
		m := messages[i]
		if m.role != "assistant" {
			out = append(out, m)
			i++
			continue
		}
		best := m
		bestLen := textLen(m)
		j := i + 1
		for j < len(messages) && messages[j].role == "assistant" {
			if l := textLen(messages[j]); l > bestLen {
				best = messages[j]
				bestLen = l
			}
			j++
		}
		out = append(out, best)
		i = j
	}
	return out
}

func textLen(m message) int {
	n := 0
	for _, t := range m.texts {
		n += len(t)
	}
	return n
}

type renderedMessage struct {
	role      string
	timestamp string
	text      string
}

func compressMessages(messages []message) []renderedMessage {
	var out []renderedMessage
	for _, m := range messages {
		var parts []string
		for _, t := range m.texts {
			if strings.TrimSpace(t) != "" {
				parts = append(parts, t)
			}
		}
		combined := strings.Join(parts, "\n")

		switch m.role {
		case "user":
			if isTrivialConfirmation(combined) {
				out = append(out, renderedMessage{role: "user", timestamp: m.timestamp, text: "[User confirmed]"})
				continue
			}
			combined = compressPastedOutput(combined)
			out = append(out, renderedMessage{role: "user", timestamp: m.timestamp, text: combined})

		case "assistant":
			if !m.hasText && len(m.toolCalls) > 0 {
				names := make([]string, len(m.toolCalls))
				for i, tc := range m.toolCalls {
					name := strings.TrimPrefix(strings.SplitN(tc, "]", 2)[0], "[Tool: ")
					names[i] = name
				}
				out = append(out, renderedMessage{
					role:      "assistant",
					timestamp: m.timestamp,
					text:      fmt.Sprintf("[Ran %d tools: %s]", len(m.toolCalls), strings.Join(names, ", ")),
				})
				continue
			}
			combined = stripBoilerplate(combined)
			if len(m.toolCalls) > 0 {
				combined = combined + "\n" + strings.Join(m.toolCalls, "\n")
			}
			if strings.TrimSpace(combined) != "" {
				out = append(out, renderedMessage{role: "assistant", timestamp: m.timestamp, text: combined})
			}
		}
	}
	return out
}

// extractContent pulls readable text and tool-call summaries from a
// message content payload, which is either a plain string or a list
// of typed blocks.
func extractContent(raw json.RawMessage) ([]string, []string) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		text := stripCommandXML(stripSystemReminders(strings.TrimSpace(asString)))
		if text == "" {
			return nil, nil
		}
		return []string{text}, nil
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, nil
	}

	var texts, toolCalls []string
	for _, blockRaw := range blocks {
		var asStr string
		if err := json.Unmarshal(blockRaw, &asStr); err == nil {
			text := stripSystemReminders(strings.TrimSpace(asStr))
			if text != "" && !isSkillPrompt(text) {
				texts = append(texts, text)
			}
			continue
		}
		var block struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(blockRaw, &block); err != nil {
			continue
		}
		switch block.Type {
		case "text":
			text := stripSystemReminders(strings.TrimSpace(block.Text))
			if isSkillPrompt(text) {
				continue
			}
			text = stripCommandXML(text)
			if text != "" {
				texts = append(texts, text)
			}
		case "tool_use":
			toolCalls = append(toolCalls, summarizeToolCall(block.Name, block.Input))
		case "tool_result":
			// Too verbose to keep.
		}
	}
	return texts, toolCalls
}

// toolArgKeys maps tool names to the input field worth keeping.
var toolArgKeys = map[string]string{
	"Bash":  "command",
	"Read":  "file_path",
	"Write": "file_path",
	"Edit":  "file_path",
	"Task":  "description",
	"Grep":  "pattern",
	"Glob":  "pattern",
}

func summarizeToolCall(name string, input json.RawMessage) string {
	if name == "" {
		name = "unknown"
	}
	key, ok := toolArgKeys[name]
	if !ok {
		return fmt.Sprintf("[Tool: %s]", name)
	}
	var fields map[string]any
	json.Unmarshal(input, &fields)
	arg, _ := fields[key].(string)
	if len(arg) > 200 {
		arg = arg[:200]
	}
	return strings.TrimSpace(fmt.Sprintf("[Tool: %s] %s", name, arg))
}

var systemReminderRe = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)

func stripSystemReminders(text string) string {
	return strings.TrimSpace(systemReminderRe.ReplaceAllString(text, ""))
}

var commandXMLRe = regexp.MustCompile(`(?s)^<command-message>\s*\S+\s*</command-message>\s*` +
	`<command-name>\s*/(\S+)\s*</command-name>\s*` +
	`(?:<command-args>\s*(.*?)\s*</command-args>)?`)

// stripCommandXML unwraps slash-command XML into the plain command.
func stripCommandXML(text string) string {
	m := commandXMLRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return strings.TrimSpace("/" + m[1] + " " + m[2])
}

// skillPromptIndicators mark large instruction blocks injected by the
// host when a slash command runs; noise for memory purposes.
var skillPromptIndicators = []string{
	"Base directory for this skill:",
	"CLI Quick Reference",
	"## Step 1:",
	"## Parse Arguments",
	"You are retrieving",
	"You are performing",
	"**Your job:**",
	"**All commands must be prefixed with:**",
}

func isSkillPrompt(text string) bool {
	if len(text) < 500 {
		return false
	}
	matches := 0
	for _, ind := range skillPromptIndicators {
		if strings.Contains(text, ind) {
			matches++
		}
	}
	return matches >= 2
}

// trivialConfirmations are user messages that add no information.
var trivialConfirmations = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "y": true,
	"ok": true, "okay": true, "k": true, "sure": true,
	"sounds good": true, "go ahead": true, "do it": true, "proceed": true,
	"go for it": true, "looks good": true, "lgtm": true, "approved": true,
	"confirm": true, "continue": true, "next": true, "perfect": true,
	"great": true, "thanks": true, "thank you": true, "cool": true,
	"nice": true, "awesome": true, "right": true, "correct": true,
	"exactly": true, "agreed": true, "fine": true, "done": true,
	"got it": true,
}

func isTrivialConfirmation(text string) bool {
	normalized := strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ".!,")
	if trivialConfirmations[normalized] {
		return true
	}
	if len(normalized) < 20 {
		for c := range trivialConfirmations {
			if strings.HasPrefix(normalized, c) {
				return true
			}
		}
	}
	return false
}

var boilerplateRe = regexp.MustCompile(`(?i)^(Let me |I'll |I will |Sure[,!] |Great[,!] |Perfect[,!] |` +
	`Absolutely[,!] |Of course[,!] |Good question[,!] |` +
	`Great question[,!] |Excellent[,!] |Alright[,!] )` +
	`(check|look|help|take a look|examine|review|investigate|` +
	`search|explore|read|see|find|get|start|do that|handle that)` +
	`[^.]*?\.\s*`)

func stripBoilerplate(text string) string {
	return strings.TrimSpace(boilerplateRe.ReplaceAllString(text, ""))
}

var terminalIndicatorRe = regexp.MustCompile(`^[$>]|^\s*(error|Error|ERROR|warning|Warning|WARN|Traceback|` +
	`at [\w.]+\(|File "|npm ERR|FAILED|PASS|` +
	`\d+\s+(passing|failing|pending))`)

// compressPastedOutput truncates what looks like pasted terminal
// output to its head and tail.
func compressPastedOutput(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 10 {
		return text
	}
	terminalLines := 0
	for _, line := range lines {
		if terminalIndicatorRe.MatchString(line) {
			terminalLines++
		}
	}
	if float64(terminalLines) < float64(len(lines))*0.3 {
		return text
	}
	omitted := len(lines) - 6
	out := append([]string{}, lines[:3]...)
	out = append(out, fmt.Sprintf("[...%d lines of terminal output...]", omitted))
	out = append(out, lines[len(lines)-3:]...)
	return strings.Join(out, "\n")
}

// shortTimestamp reduces an RFC3339 timestamp to HH:MM.
func shortTimestamp(ts string) string {
	ts = strings.Replace(ts, "T", " ", 1)
	if len(ts) >= 16 {
		return ts[11:16]
	}
	return ts
}

// Package tagger derives semantic tags and session summaries from
// conversation transcripts. Both operations call the Gemini API when a
// client is configured and degrade to pattern-based extraction when it
// is not, so archival never blocks on model availability.
package tagger

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"rlm/internal/model"
)

const (
	// maxTagInput caps transcript size sent to the model for tagging.
	maxTagInput = 10000
	// maxSummaryInput caps transcript size sent for summarization.
	maxSummaryInput = 15000
	maxTags         = 10
)

const tagPrompt = `Analyze this conversation transcript and extract 5-10 semantic tags.

Focus on:
- Technical topics discussed (e.g., sqlite, hooks, mcp-server)
- Specific features or components mentioned (e.g., authentication, caching, api)
- Technologies and tools used (e.g., python, typescript, docker)
- Types of work done (e.g., debugging, architecture-decision, refactoring, testing)
- Key decisions or solutions reached (e.g., performance-optimization, bug-fix)

Return ONLY a comma-separated list of lowercase tags, no explanation.
Keep tags specific and meaningful for future search.

Example output:
sqlite,hooks,memory-optimization,architecture-decision,python,debugging,performance

Conversation transcript:
---
%s
---

Tags:`

const summaryPrompt = `Summarize this conversation into a concise session report (~2000-4000 characters).

Structure your summary as:

## Session Summary
One paragraph overview of what was accomplished.

## Key Decisions
- Bullet points of decisions made and why

## Problems Solved
- What issues were encountered and how they were resolved

## Files Modified
- List of files created, edited, or deleted (if mentioned)

## Open Items
- Anything left unfinished or flagged for future work

Rules:
- Be specific: include names, paths, numbers, and technical details
- Skip pleasantries and filler, only substantive content
- If the conversation is mostly Q&A or exploration with no decisions, say so
- Keep total output under 4000 characters

Conversation:
---
%s
---

Summary:`

// Tagger generates tags and summaries, optionally backed by an LLM.
type Tagger struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// New builds a Tagger. An empty apiKey yields a fallback-only tagger
// that never makes network calls.
func New(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*Tagger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	t := &Tagger{model: modelName, log: log}
	if apiKey == "" {
		return t, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w: %v", model.ErrExternal, err)
	}
	t.client = client
	return t, nil
}

// SemanticTags extracts 5-10 lowercase tags from a transcript. Any
// model failure falls back to keyword extraction; the error path never
// surfaces to callers.
func (t *Tagger) SemanticTags(ctx context.Context, transcript string) []string {
	if t.client == nil {
		return KeywordTags(transcript)
	}
	prompt := fmt.Sprintf(tagPrompt, truncateMiddle(transcript, maxTagInput))
	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), nil)
	if err != nil {
		t.log.Warn("semantic tagging failed, using keyword fallback", zap.Error(err))
		return KeywordTags(transcript)
	}
	tags := parseTagResponse(resp.Text())
	if len(tags) == 0 {
		return KeywordTags(transcript)
	}
	return tags
}

// Summarize condenses a transcript into a ~2-5KB highlights document.
// Falls back to structured pattern extraction when the model is
// unavailable.
func (t *Tagger) Summarize(ctx context.Context, transcript string) string {
	if t.client == nil {
		return summaryFallback(transcript)
	}
	prompt := fmt.Sprintf(summaryPrompt, truncateMiddle(transcript, maxSummaryInput))
	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), nil)
	if err != nil {
		t.log.Warn("summarization failed, using structured fallback", zap.Error(err))
		return summaryFallback(transcript)
	}
	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return summaryFallback(transcript)
	}
	return summary
}

// truncateMiddle keeps the head and tail of long transcripts, which
// carry the most context, and drops the middle.
func truncateMiddle(text string, max int) string {
	if len(text) <= max {
		return text
	}
	head := max * 60 / 100
	tail := max - head
	return text[:head] + "\n...[middle truncated]...\n" + text[len(text)-tail:]
}

// noiseWords never make useful tags on their own.
var noiseWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "with": true,
	"for": true, "to": true, "in": true, "on": true, "at": true,
}

// parseTagResponse cleans a comma-separated model response into tags.
func parseTagResponse(response string) []string {
	response = strings.TrimSpace(response)
	if strings.Contains(response, "```") {
		for _, line := range strings.Split(response, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "```") {
				response = line
				break
			}
		}
	}
	var tags []string
	for _, raw := range strings.Split(response, ",") {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" || len(tag) <= 2 || noiseWords[tag] {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// techKeywords is the whitelist for fallback keyword tagging.
var techKeywords = map[string]bool{
	"mcp": true, "hook": true, "hooks": true, "memory": true, "recall": true,
	"sqlite": true, "database": true, "api": true, "authentication": true,
	"auth": true, "testing": true, "test": true, "debugging": true,
	"performance": true, "optimization": true, "refactoring": true,
	"architecture": true, "python": true, "javascript": true,
	"typescript": true, "react": true, "node": true, "docker": true,
	"git": true, "github": true, "commit": true, "branch": true,
	"merge": true, "pull-request": true, "bug": true, "fix": true,
	"feature": true, "implementation": true, "deployment": true,
	"server": true, "client": true, "frontend": true, "backend": true,
	"middleware": true, "cache": true, "caching": true, "session": true,
	"semantic": true, "tagging": true, "tags": true,
}

var wordRe = regexp.MustCompile(`\b[a-z]+(?:-[a-z]+)*\b`)

// KeywordTags extracts tags without LLM assistance: whitelisted
// technical terms ranked by frequency, plus a few pattern-derived
// tags for common work types.
func KeywordTags(transcript string) []string {
	lower := strings.ToLower(transcript)
	freq := map[string]int{}
	var order []string
	for _, word := range wordRe.FindAllString(lower, -1) {
		if len(word) <= 2 || !techKeywords[word] {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > maxTags {
		order = order[:maxTags]
	}

	tags := order
	has := func(tag string) bool {
		for _, t := range tags {
			if t == tag {
				return true
			}
		}
		return false
	}
	if (strings.Contains(lower, "bug") || strings.Contains(lower, "fix")) && !has("bug-fix") {
		tags = append(tags, "bug-fix")
	}
	if strings.Contains(lower, "test") && !has("testing") {
		tags = append(tags, "testing")
	}
	if strings.Contains(lower, "refactor") && !has("refactoring") {
		tags = append(tags, "refactoring")
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

// CombineTags merges semantic tags into a base tag list, dropping
// duplicates and preserving order.
func CombineTags(base, semantic []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tag := range base {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	for _, tag := range semantic {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

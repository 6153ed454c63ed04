// Package memory is the high-level contract over the store: storage
// with generated metadata, ranked recall with size hints, targeted
// extraction within entries, and session deduplication.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rlm/internal/bound"
	"rlm/internal/extractor"
	"rlm/internal/model"
	"rlm/internal/store"
)

// DedupWindow is how long two archives of the same session count as
// duplicates.
const DedupWindow = 60 * time.Second

// chunkThreshold is the content size above which char-range chunk
// descriptors are attached to an entry.
const chunkThreshold = 10000

// Service wraps a Store with the memory-service semantics.
type Service struct {
	store store.Store
	log   *zap.Logger
}

// NewService returns a memory service over st.
func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// RememberParams holds the inputs to Remember. Absent tags and
// summary are generated from the content.
type RememberParams struct {
	Content    string
	Tags       []string
	Summary    string
	Source     string
	SourceName string
}

// Remember stores a new entry and returns it (metadata populated).
func (s *Service) Remember(ctx context.Context, p RememberParams) (*model.Entry, error) {
	if p.Content == "" {
		return nil, fmt.Errorf("empty content: %w", model.ErrInvalidArgument)
	}
	source := p.Source
	if source == "" {
		source = "text"
	}
	summary := p.Summary
	if summary == "" {
		summary = AutoSummary(p.Content)
	} else if len(summary) > 80 {
		summary = summary[:80]
	}
	tags := p.Tags
	if len(tags) == 0 {
		tags = AutoTags(p.Content)
	}

	e := &model.Entry{
		ID:         NewID(),
		Summary:    summary,
		Tags:       tags,
		Timestamp:  float64(time.Now().UnixNano()) / 1e9,
		Source:     source,
		SourceName: p.SourceName,
		CharCount:  len(p.Content),
		Content:    p.Content,
	}
	if len(p.Content) > chunkThreshold {
		e.Chunks = chunkContent(p.Content, e.ID)
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	s.log.Debug("stored memory entry",
		zap.String("id", e.ID),
		zap.Int("chars", e.CharCount),
		zap.Int("chunks", len(e.Chunks)))
	return e, nil
}

// Recall searches memory and renders a bounded result list. Every hit
// carries its size category so the caller can pick direct-read, grep
// pre-filter, or recursive analysis.
func (s *Service) Recall(ctx context.Context, query string, tags []string, max int) (string, error) {
	if max <= 0 {
		max = 20
	}
	hits, err := s.store.Search(ctx, store.SearchParams{Query: query, Tags: tags, Limit: max})
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "No matching memories found.", nil
	}

	hasLarge := false
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matching memories:\n\n", len(hits))
	for i := range hits {
		h := &hits[i]
		h.SizeCategory = SizeCategory(h.CharCount)
		if h.SizeCategory == "large" || h.SizeCategory == "huge" {
			hasLarge = true
		}
		line := fmt.Sprintf("  [%.1f] %s  %s", h.Score, h.ID, h.Summary)
		if len(h.Tags) > 0 {
			line += fmt.Sprintf("  [%s]", strings.Join(h.Tags, ", "))
		}
		line += fmt.Sprintf("  (%d chars, %s)", h.CharCount, h.SizeCategory)
		b.WriteString(line + "\n")

		if snippet, _ := s.store.Snippet(ctx, query, h.ID); snippet != "" {
			fmt.Fprintf(&b, "      %s\n", snippet)
		}
		if b.Len() > bound.MaxOutput-400 {
			if remaining := len(hits) - i - 1; remaining > 0 {
				fmt.Fprintf(&b, "\n  ... and %d more results\n", remaining)
			}
			break
		}
	}
	if hasLarge {
		b.WriteString("\nLarge entries: run memory-extract <id> --grep <pattern> before reading them fully.\n")
	}
	return bound.Truncate(strings.TrimRight(b.String(), "\n"), "recall"), nil
}

// ExtractParams narrows what Extract returns from an entry.
type ExtractParams struct {
	ID      string
	ChunkID string
	Grep    string
	Context int
}

// Extract returns entry content. Without options the full content
// comes back raw, destined for a subordinate agent. Grep and chunk
// modes return narrowed, bounded output for the orchestrator.
func (s *Service) Extract(ctx context.Context, p ExtractParams) (string, error) {
	entry, err := s.store.Get(ctx, p.ID)
	if err != nil {
		return "", err
	}

	if p.Grep != "" {
		out, err := extractor.GrepContent(entry.Content, p.Grep, p.Context)
		if err != nil {
			return "", err
		}
		if out == "" {
			return fmt.Sprintf("No matches found for pattern %q in %s", p.Grep, p.ID), nil
		}
		return bound.Truncate(out, "memory-extract --grep"), nil
	}

	if p.ChunkID != "" {
		for _, c := range entry.Chunks {
			if c.ChunkID == p.ChunkID {
				end := c.EndChar
				if end > len(entry.Content) {
					end = len(entry.Content)
				}
				return entry.Content[c.StartChar:end], nil
			}
		}
		return "", fmt.Errorf("chunk %q not in entry %s: %w", p.ChunkID, p.ID, model.ErrNotFound)
	}

	return entry.Content, nil
}

// List renders a bounded metadata listing, optionally filtered by
// tags and paginated.
func (s *Service) List(ctx context.Context, tags []string, offset, limit int) (string, error) {
	entries, total, err := s.store.List(ctx, store.ListParams{Tags: tags, Offset: offset, Limit: limit})
	if err != nil {
		return "", err
	}
	return FormatList(entries, total, offset), nil
}

// Forget hard-deletes an entry.
func (s *Service) Forget(ctx context.Context, id string) error {
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("entry not found: %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// DedupDecision says what an archive should do with new content for a
// session that may already be stored.
type DedupDecision struct {
	// Action is "store", "skip", or "replace".
	Action string
	// ReplaceIDs are the stale entries to delete before storing.
	ReplaceIDs []string
}

// Deduplicate inspects existing entries tagged with sessionTag. An
// identical content hash younger than the window means skip; the same
// session with different content (the transcript grew) means replace
// the older entries.
func (s *Service) Deduplicate(ctx context.Context, sessionTag, content string) (DedupDecision, error) {
	entries, _, err := s.store.List(ctx, store.ListParams{Tags: []string{sessionTag}, Limit: 50})
	if err != nil {
		return DedupDecision{}, err
	}
	if len(entries) == 0 {
		return DedupDecision{Action: "store"}, nil
	}

	newHash := ContentHash(content)
	now := float64(time.Now().UnixNano()) / 1e9
	var replaceIDs []string
	for _, e := range entries {
		full, err := s.store.Get(ctx, e.ID)
		if err != nil {
			continue
		}
		if ContentHash(full.Content) == newHash && now-e.Timestamp < DedupWindow.Seconds() {
			return DedupDecision{Action: "skip"}, nil
		}
		replaceIDs = append(replaceIDs, e.ID)
	}
	return DedupDecision{Action: "replace", ReplaceIDs: replaceIDs}, nil
}

// FormatList renders a bounded metadata listing.
func FormatList(entries []model.Entry, total, offset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Memory Store: %d entries total", total)
	if offset > 0 || len(entries) < total {
		fmt.Fprintf(&b, " (showing %d-%d)", offset+1, offset+len(entries))
	}
	b.WriteString("\n\n")
	for i, e := range entries {
		line := fmt.Sprintf("  %s  %s", e.ID, e.Summary)
		if len(e.Tags) > 0 {
			line += fmt.Sprintf("  [%s]", strings.Join(e.Tags, ", "))
		}
		line += fmt.Sprintf("  (%d chars, %s)", e.CharCount, e.Source)
		b.WriteString(line + "\n")
		if b.Len() > bound.MaxOutput-100 {
			if remaining := total - offset - i - 1; remaining > 0 {
				fmt.Fprintf(&b, "\n  ... and %d more entries (use --offset to paginate)\n", remaining)
			}
			break
		}
	}
	return bound.Truncate(strings.TrimRight(b.String(), "\n"), "memory-list")
}

// SizeCategory buckets a character count so the orchestrator can plan
// retrieval.
func SizeCategory(chars int) string {
	switch {
	case chars < 2048:
		return "small"
	case chars < 10240:
		return "medium"
	case chars < 51200:
		return "large"
	default:
		return "huge"
	}
}

// NewID returns a fresh memory id.
func NewID() string {
	return "m_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ContentHash is the dedup fingerprint of entry content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Words to exclude from auto-tagging.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "are": true, "was": true, "were": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "can": true, "shall": true,
	"not": true, "but": true, "into": true, "about": true, "than": true,
	"then": true, "when": true, "where": true, "which": true, "while": true,
	"also": true, "each": true, "other": true, "some": true, "such": true,
	"only": true, "very": true, "just": true, "over": true, "after": true,
	"before": true, "between": true, "through": true, "during": true,
	"without": true, "again": true, "further": true, "once": true,
	"here": true, "there": true, "all": true, "both": true, "more": true,
	"most": true, "same": true, "own": true, "too": true, "any": true,
	"how": true, "what": true, "who": true, "whom": true, "why": true,
	"these": true, "those": true, "above": true, "below": true,
	"under": true, "use": true, "used": true, "using": true,
	"because": true, "like": true, "make": true, "made": true,
}

var tokenRe = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// AutoTags extracts candidate tags from content by word frequency:
// lowercase tokens longer than 3 chars, not stop words, appearing at
// least twice, most frequent first.
func AutoTags(content string) []string {
	words := tokenRe.FindAllString(strings.ToLower(content), -1)
	freq := map[string]int{}
	var order []string
	for _, w := range words {
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}
	var candidates []string
	for _, w := range order {
		if freq[w] >= 2 {
			candidates = append(candidates, w)
		}
	}
	// Frequency descending, first occurrence breaking ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return freq[candidates[i]] > freq[candidates[j]]
	})
	if len(candidates) > 6 {
		candidates = candidates[:6]
	}
	return candidates
}

var headingRe = regexp.MustCompile(`^#+\s*`)
var markupRe = regexp.MustCompile("[*_`~]")

// AutoSummary derives a summary from the first meaningful line,
// stripped of markdown, truncated to 80 chars at a word boundary.
func AutoSummary(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = headingRe.ReplaceAllString(line, "")
		line = markupRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 80 {
			line = line[:80]
			if idx := strings.LastIndex(line, " "); idx > 40 {
				line = line[:idx]
			}
		}
		return line
	}
	if len(content) > 80 {
		return strings.TrimSpace(content[:80])
	}
	if content == "" {
		return "(empty)"
	}
	return strings.TrimSpace(content)
}

var paragraphRe = regexp.MustCompile(`\n\s*\n`)

// chunkContent splits large content into char-range descriptors at
// paragraph boundaries, roughly 5000 chars apiece.
func chunkContent(content, entryID string) []model.ContentRef {
	const targetSize = 5000
	var chunks []model.ContentRef
	paragraphs := paragraphRe.Split(content, -1)

	emit := func(start int, text string) {
		end := start + len(text)
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", entryID, start, end)))
		preview := text
		if len(preview) > 80 {
			preview = preview[:80]
		}
		chunks = append(chunks, model.ContentRef{
			ChunkID:   "mc_" + hex.EncodeToString(sum[:])[:10],
			StartChar: start,
			EndChar:   end,
			CharCount: len(text),
			Preview:   strings.TrimSpace(preview),
		})
	}

	start := 0
	current := ""
	for _, para := range paragraphs {
		if current != "" && len(current)+len(para) > targetSize {
			emit(start, current)
			start += len(current)
			current = para
		} else if current != "" {
			current += "\n\n" + para
		} else {
			current = para
		}
	}
	if current != "" {
		emit(start, current)
	}
	return chunks
}

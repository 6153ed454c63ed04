// Package scratchpad is short-lived working memory for in-progress
// analyses. Entries live in the same database as long-term memory but
// in their own table, expire after a TTL, and can be promoted into
// long-term memory once an analysis settles.
package scratchpad

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"rlm/internal/bound"
	"rlm/internal/memory"
	"rlm/internal/model"
	"rlm/internal/store"
)

// DefaultTTL is how long an entry survives unless a TTL is given.
const DefaultTTL = 24 * time.Hour

// Service wraps the scratchpad table with promotion into memory.
type Service struct {
	store   store.Store
	mem     *memory.Service
	entropy *rand.Rand
}

// NewService returns a scratchpad over st, promoting into mem.
func NewService(st store.Store, mem *memory.Service) *Service {
	return &Service{
		store:   st,
		mem:     mem,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SaveParams holds the inputs to Save. Zero TTL means DefaultTTL.
type SaveParams struct {
	Content         string
	Label           string
	Tags            []string
	TTL             time.Duration
	AnalysisSession string
}

// Save stores a new scratchpad entry and returns it.
func (s *Service) Save(ctx context.Context, p SaveParams) (*store.ScratchEntry, error) {
	if p.Content == "" {
		return nil, fmt.Errorf("empty scratchpad content: %w", model.ErrInvalidArgument)
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	label := p.Label
	if label == "" {
		label = strings.ReplaceAll(firstN(p.Content, 60), "\n", " ")
	}
	now := time.Now()
	e := &store.ScratchEntry{
		ID:              s.newScratchID(now),
		Label:           label,
		Content:         p.Content,
		Tags:            p.Tags,
		CreatedAt:       float64(now.UnixNano()) / 1e9,
		ExpiresAt:       float64(now.Add(ttl).UnixNano()) / 1e9,
		AnalysisSession: p.AnalysisSession,
	}
	if err := s.store.PutScratch(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an entry by id, expired or not.
func (s *Service) Get(ctx context.Context, id string) (*store.ScratchEntry, error) {
	return s.store.GetScratch(ctx, id)
}

// List returns entries newest first, skipping expired ones unless
// asked otherwise.
func (s *Service) List(ctx context.Context, includeExpired bool) ([]store.ScratchEntry, error) {
	return s.store.ListScratch(ctx, includeExpired)
}

// Delete removes one entry; reports whether it existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteScratch(ctx, id)
}

// Clear removes entries, all or only expired, returning the count.
func (s *Service) Clear(ctx context.Context, expiredOnly bool) (int, error) {
	return s.store.ClearScratch(ctx, expiredOnly)
}

// Promote moves a scratchpad entry into long-term memory: merges its
// tags with the extra ones plus a provenance tag, stores it, then
// deletes the scratch copy.
func (s *Service) Promote(ctx context.Context, id string, tags []string, summary string) (*model.Entry, error) {
	e, err := s.store.GetScratch(ctx, id)
	if err != nil {
		return nil, err
	}

	allTags := append([]string{}, e.Tags...)
	for _, t := range tags {
		if !contains(allTags, t) {
			allTags = append(allTags, t)
		}
	}
	if !contains(allTags, "scratchpad") {
		allTags = append(allTags, "scratchpad")
	}

	if summary == "" {
		summary = e.Label
	}
	if summary == "" {
		summary = firstN(e.Content, 80)
	}

	entry, err := s.mem.Remember(ctx, memory.RememberParams{
		Content:    e.Content,
		Tags:       allTags,
		Summary:    summary,
		Source:     "scratchpad",
		SourceName: e.ID,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.DeleteScratch(ctx, id); err != nil {
		return nil, err
	}
	return entry, nil
}

// FormatEntryList renders entries for CLI display, bounded.
func FormatEntryList(entries []store.ScratchEntry) string {
	if len(entries) == 0 {
		return "No scratchpad entries."
	}
	now := float64(time.Now().UnixNano()) / 1e9

	var b strings.Builder
	fmt.Fprintf(&b, "Scratchpad entries (%d):\n", len(entries))
	for _, e := range entries {
		label := e.Label
		if label == "" {
			label = "(no label)"
		}
		created := time.Unix(int64(e.CreatedAt), 0).Format("2006-01-02 15:04")
		fmt.Fprintf(&b, "\n  %s  %s", e.ID, firstN(label, 50))
		if len(e.Tags) > 0 {
			tags := e.Tags
			if len(tags) > 3 {
				tags = tags[:3]
			}
			fmt.Fprintf(&b, "  [%s]", strings.Join(tags, ", "))
		}
		fmt.Fprintf(&b, "  (%d chars, %s, %s)", len(e.Content), created, ttlString(e.ExpiresAt, now))
		if e.AnalysisSession != "" {
			fmt.Fprintf(&b, "  session=%s", e.AnalysisSession)
		}
	}
	return bound.Truncate(b.String(), "scratch list")
}

// FormatEntry renders one entry with its full content. Not bounded;
// scratch content is destined for the caller that saved it.
func FormatEntry(e *store.ScratchEntry) string {
	now := float64(time.Now().UnixNano()) / 1e9
	label := e.Label
	if label == "" {
		label = "(none)"
	}
	tags := strings.Join(e.Tags, ", ")
	if tags == "" {
		tags = "(none)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID:       %s\n", e.ID)
	fmt.Fprintf(&b, "Label:    %s\n", label)
	fmt.Fprintf(&b, "Created:  %s\n", time.Unix(int64(e.CreatedAt), 0).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Expires:  %s\n", ttlString(e.ExpiresAt, now))
	fmt.Fprintf(&b, "Tags:     %s\n", tags)
	fmt.Fprintf(&b, "Size:     %d chars\n", len(e.Content))
	if e.AnalysisSession != "" {
		fmt.Fprintf(&b, "Session:  %s\n", e.AnalysisSession)
	}
	b.WriteString("\n")
	b.WriteString(e.Content)
	return b.String()
}

func ttlString(expiresAt, now float64) string {
	if expiresAt <= now {
		return "EXPIRED"
	}
	remaining := expiresAt - now
	if remaining < 3600 {
		return fmt.Sprintf("expires in %dm", int(remaining/60))
	}
	return fmt.Sprintf("expires in %.1fh", remaining/3600)
}

func (s *Service) newScratchID(t time.Time) string {
	return "scratch-" + strings.ToLower(ulid.MustNew(ulid.Timestamp(t), s.entropy).String())
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package archive is the session archival pipeline: export a raw
// session log to a compact transcript, tag it, and store it through
// the two-tier smart-remember flow (summary entry for fast recall plus
// the full transcript for drill-down).
package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rlm/internal/export"
	"rlm/internal/memory"
	"rlm/internal/store"
	"rlm/internal/tagger"
)

// SummaryThreshold is the content size above which smart-remember
// stores two tiers: a generated summary entry and the full content.
const SummaryThreshold = 4000

const markerSuffix = ".rlm-archived"

// Archiver runs the smart-remember and archive-session pipelines.
type Archiver struct {
	svc    *memory.Service
	store  store.Store
	tagger *tagger.Tagger
	log    *zap.Logger
}

// New returns an Archiver. tg may be nil; tagging and summarization
// then run in fallback mode through a zero-value tagger.
func New(svc *memory.Service, st store.Store, tg *tagger.Tagger, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	if tg == nil {
		tg = &tagger.Tagger{}
	}
	return &Archiver{svc: svc, store: st, tagger: tg, log: log}
}

// SmartRememberParams holds the inputs to SmartRemember.
type SmartRememberParams struct {
	Content    string
	Source     string
	SourceName string
	Tags       []string
	Label      string
	// Dedup replaces existing entries sharing SourceName before
	// storing.
	Dedup bool
}

// SmartRememberResult reports what was stored.
type SmartRememberResult struct {
	SummaryID string
	ContentID string
	Summary   string
	Tags      []string
}

// SmartRemember runs content through the full pipeline: semantic tags,
// summary generation for large content, then storage. Content above
// SummaryThreshold yields two linked entries; the summary entry is
// the primary search target. Tagging failures degrade silently; only
// storage errors abort.
func (a *Archiver) SmartRemember(ctx context.Context, p SmartRememberParams) (*SmartRememberResult, error) {
	if p.Dedup && p.SourceName != "" {
		n, err := a.store.DeleteBySourceName(ctx, p.SourceName)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			a.log.Info("replacing existing entries", zap.String("source_name", p.SourceName), zap.Int("count", n))
		}
	}

	semantic := a.tagger.SemanticTags(ctx, p.Content)
	allTags := tagger.CombineTags(p.Tags, semantic)
	if len(semantic) > 0 {
		a.log.Info("semantic tags", zap.Strings("tags", semantic))
	}

	result := &SmartRememberResult{Tags: allTags}

	if len(p.Content) > SummaryThreshold {
		summaryText := a.tagger.Summarize(ctx, p.Content)

		summaryLabel := p.Label
		if summaryLabel == "" {
			summaryLabel = "Summary: " + nameOrSource(p)
		}
		summaryEntry, err := a.svc.Remember(ctx, memory.RememberParams{
			Content:    summaryText,
			Tags:       append([]string{"summary"}, allTags...),
			Summary:    summaryLabel,
			Source:     p.Source + "-summary",
			SourceName: p.SourceName,
		})
		if err != nil {
			return nil, err
		}
		result.SummaryID = summaryEntry.ID
		result.Summary = summaryEntry.Summary
		a.log.Info("stored summary tier", zap.String("id", summaryEntry.ID), zap.Int("chars", len(summaryText)))

		contentEntry, err := a.svc.Remember(ctx, memory.RememberParams{
			Content:    p.Content,
			Tags:       append([]string{"full-content"}, allTags...),
			Summary:    "Full content: " + nameOrSource(p),
			Source:     p.Source,
			SourceName: p.SourceName,
		})
		if err != nil {
			return nil, err
		}
		result.ContentID = contentEntry.ID
		a.log.Info("stored full tier", zap.String("id", contentEntry.ID), zap.Int("chars", len(p.Content)))
		return result, nil
	}

	entry, err := a.svc.Remember(ctx, memory.RememberParams{
		Content:    p.Content,
		Tags:       allTags,
		Summary:    p.Label,
		Source:     p.Source,
		SourceName: p.SourceName,
	})
	if err != nil {
		return nil, err
	}
	result.SummaryID = entry.ID
	result.Summary = entry.Summary
	return result, nil
}

// ArchiveSession exports, tags, and stores one session log.
// Deduplication keys on the log's filename: unchanged since the last
// archive means skip, grown means replace the old entries. Returns
// false when nothing was archived.
func (a *Archiver) ArchiveSession(ctx context.Context, sessionFile, cwd string) (bool, error) {
	info, err := os.Stat(sessionFile)
	if err != nil {
		return false, fmt.Errorf("stat session file: %w", err)
	}
	sessionName := filepath.Base(sessionFile)
	currentSize := info.Size()

	if archived, ok := readArchivedSize(sessionFile); ok && archived == currentSize {
		a.log.Info("already archived, file unchanged", zap.String("session", sessionName))
		return false, nil
	}
	n, err := a.store.DeleteBySourceName(ctx, sessionName)
	if err != nil {
		return false, err
	}
	if n > 0 {
		a.log.Info("session has new content, replacing old entries", zap.Int("count", n))
	}

	transcript, err := export.Session(sessionFile)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(transcript) == "" {
		a.log.Info("empty transcript, skipping", zap.String("session", sessionName))
		return false, nil
	}

	projectName := ProjectName(cwd)
	sessionID := "s_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	date := time.Now().Format("2006-01-02")
	a.log.Info("archiving session",
		zap.String("project", projectName), zap.String("session_id", sessionID))

	_, err = a.SmartRemember(ctx, SmartRememberParams{
		Content:    transcript,
		Source:     "session",
		SourceName: sessionName,
		Tags:       []string{"conversation", "session", projectName, date, sessionID},
		Label:      fmt.Sprintf("Session: %s on %s", projectName, date),
	})
	if err != nil {
		return false, err
	}

	if err := markArchived(sessionFile, currentSize); err != nil {
		a.log.Warn("write archive marker failed", zap.Error(err))
	}
	return true, nil
}

func nameOrSource(p SmartRememberParams) string {
	if p.SourceName != "" {
		return p.SourceName
	}
	return p.Source
}

// ProjectName resolves the current project name from the git toplevel,
// falling back to the directory name.
func ProjectName(cwd string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	if cwd != "" {
		cmd.Dir = cwd
	}
	out, err := cmd.Output()
	if err == nil {
		if top := strings.TrimSpace(string(out)); top != "" {
			return filepath.Base(top)
		}
	}
	if cwd != "" {
		return filepath.Base(cwd)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return filepath.Base(wd)
}

// FindLatestSession returns the most recently modified .jsonl session
// log under dir, or "" when none exists.
func FindLatestSession(dir string) string {
	var latest string
	var latestMod time.Time
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(latestMod) {
			latest = path
			latestMod = info.ModTime()
		}
		return nil
	})
	return latest
}

// markArchived records the archived file size next to the session log
// so an unchanged file is not archived twice.
func markArchived(sessionFile string, size int64) error {
	marker := sessionFile + markerSuffix
	content := fmt.Sprintf("%s\n%d", time.Now().Format(time.RFC3339), size)
	return os.WriteFile(marker, []byte(content), 0o644)
}

func readArchivedSize(sessionFile string) (int64, bool) {
	data, err := os.ReadFile(sessionFile + markerSuffix)
	if err != nil {
		return 0, false
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return 0, false
	}
	size, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

// Package strategy holds the retrieval feedback loop: a free-text
// learned-patterns document the orchestrator reads before each recall,
// and an append-only performance log.
package strategy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rlm/internal/bound"
)

const (
	patternsFile = "learned_patterns.md"
	perfFile     = "performance.jsonl"
)

// Record is one performance entry, appended after a recall session.
type Record struct {
	Timestamp     float64  `json:"timestamp"`
	Query         string   `json:"query"`
	SearchTerms   []string `json:"search_terms,omitempty"`
	EntriesFound  int      `json:"entries_found"`
	EntriesUseful int      `json:"entries_relevant"`
	Subagents     int      `json:"subagents"`
	Notes         string   `json:"notes,omitempty"`
}

// Store reads and appends strategy state under one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create strategies dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Show returns the learned-patterns document verbatim, bounded. The
// core never parses it.
func (s *Store) Show() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, patternsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "No learned patterns recorded yet.", nil
		}
		return "", fmt.Errorf("read patterns: %w", err)
	}
	return bound.Truncate(strings.TrimRight(string(data), "\n"), "strategy show"), nil
}

// Append adds free text to the learned-patterns document. Last writer
// wins; no merge is attempted.
func (s *Store) Append(text string) error {
	f, err := os.OpenFile(filepath.Join(s.dir, patternsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open patterns: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n", strings.TrimRight(text, "\n")); err != nil {
		return fmt.Errorf("append patterns: %w", err)
	}
	return nil
}

// Perf appends one performance record with the current timestamp.
func (s *Store) Perf(r Record) error {
	if r.Timestamp == 0 {
		r.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, perfFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open perf log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append perf log: %w", err)
	}
	return nil
}

// Log returns the last n performance records, oldest first, rendered
// bounded. Malformed lines are skipped.
func (s *Store) Log(n int) (string, error) {
	if n <= 0 {
		n = 10
	}
	f, err := os.Open(filepath.Join(s.dir, perfFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "No performance records yet.", nil
		}
		return "", fmt.Errorf("read perf log: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read perf log: %w", err)
	}
	if len(records) == 0 {
		return "No performance records yet.", nil
	}
	if len(records) > n {
		records = records[len(records)-n:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d recall sessions:\n\n", len(records))
	for _, r := range records {
		ts := time.Unix(int64(r.Timestamp), 0).Format("2006-01-02 15:04")
		fmt.Fprintf(&b, "  [%s] %q -- found %d, relevant %d, subagents %d\n",
			ts, r.Query, r.EntriesFound, r.EntriesUseful, r.Subagents)
		if r.Notes != "" {
			fmt.Fprintf(&b, "    %s\n", r.Notes)
		}
	}
	return bound.Truncate(strings.TrimRight(b.String(), "\n"), "strategy log"), nil
}

// Package session persists per-query analysis state across CLI
// invocations. Each invocation is its own process, so state is read
// fresh and written atomically every time.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"rlm/internal/bound"
	"rlm/internal/model"
)

// Iteration is one record in the strictly-appending session log.
type Iteration struct {
	T     float64 `json:"t"`
	Key   string  `json:"key"`
	Value string  `json:"value"`
}

// ResultEntry is a keyed finding; last write wins per key.
type ResultEntry struct {
	Value   string  `json:"value"`
	AddedAt float64 `json:"added_at"`
}

// State is the full session record.
type State struct {
	SessionID   string                 `json:"session_id"`
	Query       string                 `json:"query"`
	TargetPath  string                 `json:"target_path"`
	CreatedAt   float64                `json:"created_at"`
	Iterations  []Iteration            `json:"iterations"`
	Results     map[string]ResultEntry `json:"results"`
	Status      string                 `json:"status"`
	FinalAnswer string                 `json:"final_answer,omitempty"`
	CompletedAt float64                `json:"completed_at,omitempty"`
}

const (
	StatusActive    = "active"
	StatusFinalized = "finalized"
)

// Store manages session directories under a base dir.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Init creates a fresh session and returns its id.
func (s *Store) Init(query, targetPath string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("empty query: %w", model.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", targetPath, err)
	}

	id := newSessionID()
	if err := os.MkdirAll(s.sessionDir(id), 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	state := &State{
		SessionID:  id,
		Query:      query,
		TargetPath: abs,
		CreatedAt:  now(),
		Iterations: []Iteration{},
		Results:    map[string]ResultEntry{},
		Status:     StatusActive,
	}
	if err := s.save(id, state); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads a session's state.
func (s *Store) Get(id string) (*State, error) {
	data, err := os.ReadFile(s.statePath(id))
	if err != nil {
		return nil, fmt.Errorf("session not found: %s: %w", id, model.ErrNotFound)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if state.Results == nil {
		state.Results = map[string]ResultEntry{}
	}
	return &state, nil
}

// AddResult upserts results[key] and appends an iteration record.
// Finalized sessions reject writes.
func (s *Store) AddResult(id, key, value string) error {
	state, err := s.Get(id)
	if err != nil {
		return err
	}
	if state.Status == StatusFinalized {
		return fmt.Errorf("session %s is finalized: %w", id, model.ErrConflict)
	}
	t := now()
	state.Results[key] = ResultEntry{Value: value, AddedAt: t}
	state.Iterations = append(state.Iterations, Iteration{T: t, Key: key, Value: value})
	return s.save(id, state)
}

// GetResult returns a single keyed result value.
func (s *Store) GetResult(id, key string) (string, error) {
	state, err := s.Get(id)
	if err != nil {
		return "", err
	}
	entry, ok := state.Results[key]
	if !ok {
		return "", fmt.Errorf("no result %q in session %s: %w", key, id, model.ErrNotFound)
	}
	return entry.Value, nil
}

// Finalize freezes the session. Further result writes fail with a
// conflict.
func (s *Store) Finalize(id, answer string) error {
	state, err := s.Get(id)
	if err != nil {
		return err
	}
	if state.Status == StatusFinalized {
		return fmt.Errorf("session %s already finalized: %w", id, model.ErrConflict)
	}
	state.Status = StatusFinalized
	state.FinalAnswer = answer
	state.CompletedAt = now()
	return s.save(id, state)
}

// StoreManifest persists a chunk manifest alongside the session state
// and returns its path.
func (s *Store) StoreManifest(id string, m *model.Manifest) (string, error) {
	if _, err := s.Get(id); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(s.sessionDir(id), "manifest.json")
	if err := atomicWrite(s.sessionDir(id), path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ManifestPath returns where a session's manifest lives, whether or
// not one has been stored yet.
func (s *Store) ManifestPath(id string) string {
	return filepath.Join(s.sessionDir(id), "manifest.json")
}

// FormatStatus renders a concise bounded status display.
func FormatStatus(state *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", state.SessionID)
	fmt.Fprintf(&b, "Query: %s\n", state.Query)
	fmt.Fprintf(&b, "Target: %s\n", state.TargetPath)
	fmt.Fprintf(&b, "Status: %s\n", state.Status)
	fmt.Fprintf(&b, "Iterations: %d\n", len(state.Iterations))
	fmt.Fprintf(&b, "Results: %d entries\n", len(state.Results))
	if n := len(state.Iterations); n > 0 {
		last := state.Iterations[n-1]
		fmt.Fprintf(&b, "Last result: %s\n", last.Key)
	}
	return bound.Truncate(strings.TrimRight(b.String(), "\n"), "status")
}

// FormatResults renders the full record: iteration log, results, and
// final answer, bounded.
func FormatResults(state *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", state.SessionID)
	fmt.Fprintf(&b, "Query: %s\n", state.Query)
	fmt.Fprintf(&b, "Target: %s\n", state.TargetPath)
	fmt.Fprintf(&b, "Status: %s\n", state.Status)
	fmt.Fprintf(&b, "Iterations: %d\n\n", len(state.Iterations))

	if len(state.Iterations) > 0 {
		b.WriteString("Iteration Log:\n")
		for i, it := range state.Iterations {
			fmt.Fprintf(&b, "  [%d] %s: %s\n", i+1, it.Key, shorten(it.Value, 100))
		}
		b.WriteString("\n")
	}

	if len(state.Results) > 0 {
		fmt.Fprintf(&b, "Results (%d entries):\n", len(state.Results))
		keys := orderedKeys(state)
		for i, key := range keys {
			entry := state.Results[key]
			fmt.Fprintf(&b, "  %s:\n", key)
			for _, line := range strings.Split(shorten(entry.Value, 200), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
			b.WriteString("\n")
			if b.Len() > bound.MaxOutput-200 {
				if remaining := len(keys) - i - 1; remaining > 0 {
					fmt.Fprintf(&b, "  ... and %d more results\n", remaining)
				}
				break
			}
		}
	}

	if state.FinalAnswer != "" {
		b.WriteString("Final Answer:\n")
		for _, line := range strings.Split(shorten(state.FinalAnswer, 500), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	return bound.Truncate(strings.TrimRight(b.String(), "\n"), "result --all")
}

// orderedKeys returns result keys in first-write order, derived from
// the iteration log, with any stragglers appended sorted.
func orderedKeys(state *State) []string {
	seen := map[string]bool{}
	var keys []string
	for _, it := range state.Iterations {
		if _, ok := state.Results[it.Key]; ok && !seen[it.Key] {
			seen[it.Key] = true
			keys = append(keys, it.Key)
		}
	}
	var rest []string
	for k := range state.Results {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	if len(rest) > 0 {
		sort.Strings(rest)
		keys = append(keys, rest...)
	}
	return keys
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func (s *Store) sessionDir(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *Store) statePath(id string) string {
	return filepath.Join(s.sessionDir(id), "state.json")
}

func (s *Store) save(id string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return atomicWrite(s.sessionDir(id), s.statePath(id), data)
}

// atomicWrite lands data at path via temp file + rename so readers
// never observe a partial write.
func atomicWrite(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

package chunker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rlm/internal/model"
	"rlm/internal/scanner"
)

// Recommendation pairs a strategy name with a one-line rationale.
type Recommendation struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
	Priority int    `json:"priority"`
}

// Recommend ranks chunking strategies for a path using metadata only.
func Recommend(path string) ([]Recommendation, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s: %w", path, model.ErrNotFound)
	}
	if info.IsDir() {
		return recommendForDirectory(abs), nil
	}
	return recommendForFile(abs), nil
}

var structuredLanguages = map[string]bool{
	"python": true, "javascript": true, "typescript": true, "go": true,
	"rust": true, "java": true, "kotlin": true, "ruby": true,
}

func recommendForFile(path string) []Recommendation {
	lang := scanner.DetectLanguage(path)
	lines := countLines(path)

	var recs []Recommendation
	if lang == "markdown" {
		recs = append(recs, Recommendation{
			Strategy: "headings",
			Reason:   "Markdown file -- heading boundaries are natural splits",
			Priority: 1,
		})
	} else if structuredLanguages[lang] {
		if structure := scanner.ExtractStructure(path); len(structure) > 0 {
			recs = append(recs, Recommendation{
				Strategy: "functions",
				Reason:   fmt.Sprintf("Found %d functions/classes -- structural boundaries are ideal", len(structure)),
				Priority: 1,
			})
		}
	}

	if lines > 200 {
		p := 1
		if len(recs) > 0 {
			p = 2
		}
		recs = append(recs, Recommendation{
			Strategy: "semantic",
			Reason:   "Blank-line boundaries for natural paragraph/block splits",
			Priority: p,
		})
	}

	p := 1
	if len(recs) > 0 {
		p = 3
	}
	recs = append(recs, Recommendation{
		Strategy: "lines",
		Reason:   fmt.Sprintf("Fixed-size chunks (%d lines total)", lines),
		Priority: p,
	})

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs
}

func recommendForDirectory(path string) []Recommendation {
	files := collectFiles(path)
	totalLines := 0
	languages := map[string]bool{}
	for _, f := range files {
		totalLines += f.lines
		languages[f.language] = true
	}

	var recs []Recommendation
	switch {
	case len(files) <= 50:
		recs = append(recs, Recommendation{
			Strategy: "files_directory",
			Reason:   fmt.Sprintf("Small project (%d files) -- group by directory", len(files)),
			Priority: 1,
		})
	case len(languages) > 3:
		recs = append(recs, Recommendation{
			Strategy: "files_language",
			Reason:   fmt.Sprintf("Multi-language project (%d languages) -- group by language", len(languages)),
			Priority: 1,
		})
	default:
		recs = append(recs, Recommendation{
			Strategy: "files_balanced",
			Reason:   fmt.Sprintf("Large project (%d files, %d lines) -- balanced groups", len(files), totalLines),
			Priority: 1,
		})
	}

	recs = append(recs, Recommendation{
		Strategy: "files_directory",
		Reason:   "Group files by directory for structural analysis",
		Priority: 2,
	})
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs
}

// LoadManifest reads a saved manifest file.
func LoadManifest(path string) (*model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest not found: %s: %w", path, model.ErrNotFound)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// SaveManifest writes a manifest into dir as manifest.json, atomically.
func SaveManifest(m *model.Manifest, dir string) (string, error) {
	path := filepath.Join(dir, "manifest.json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// FormatManifest renders a manifest summary for the orchestrator.
func FormatManifest(m *model.Manifest) string {
	var b strings.Builder
	source := m.SourceFile
	if source == "" {
		source = m.SourceDir
	}
	fmt.Fprintf(&b, "Strategy: %s\n", m.Strategy)
	fmt.Fprintf(&b, "Source: %s\n", source)
	fmt.Fprintf(&b, "Chunks: %d\n", m.ChunkCount)
	if m.ManifestPath != "" {
		fmt.Fprintf(&b, "Manifest: %s\n", m.ManifestPath)
	}
	b.WriteString("\n")
	for i, c := range m.Chunks {
		if c.IsFileGroup() {
			fmt.Fprintf(&b, "  [%s] %s: %d files, %d lines\n", c.ChunkID, c.GroupName, c.FileCount, c.TotalLines)
		} else {
			label := ""
			if c.Name != "" {
				label = " " + c.Name
			} else if c.Heading != "" {
				label = " " + c.Heading
			}
			fmt.Fprintf(&b, "  [%s] lines %d-%d (%d chars)%s\n", c.ChunkID, c.StartLine, c.EndLine, c.CharCount, label)
		}
		if b.Len() > 3500 {
			if remaining := len(m.Chunks) - i - 1; remaining > 0 {
				fmt.Fprintf(&b, "  ... and %d more chunks\n", remaining)
			}
			break
		}
	}
	return b.String()
}

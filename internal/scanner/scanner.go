// Package scanner produces bounded metadata about files and trees:
// sizes, line counts, language breakdown, and structure outlines. It
// never returns file content to the caller.
package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rlm/internal/bound"
	"rlm/internal/model"
)

// FileInfo is the per-file metadata record.
type FileInfo struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Lines     int    `json:"lines"`
	Language  string `json:"language"`
	Structure []Item `json:"structure,omitempty"`
}

// LangStats aggregates counts for one language.
type LangStats struct {
	Files int   `json:"files"`
	Lines int   `json:"lines"`
	Bytes int64 `json:"bytes"`
}

// Result is the full scan output.
type Result struct {
	Target      string               `json:"target"`
	IsFile      bool                 `json:"is_file"`
	TotalFiles  int                  `json:"total_files"`
	TotalLines  int                  `json:"total_lines"`
	TotalBytes  int64                `json:"total_bytes"`
	Languages   map[string]LangStats `json:"languages"`
	Files       []FileInfo           `json:"files"`
	Directories []string             `json:"directories"`
	Errors      []string             `json:"errors,omitempty"`
}

// Scan walks path up to maxDepth directory levels and returns metadata.
// Unreadable entries produce an error record and the scan continues.
func Scan(path string, maxDepth int) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s: %w", path, model.ErrNotFound)
	}
	if !info.IsDir() {
		return scanSingleFile(abs, info.Size()), nil
	}
	return scanDirectory(abs, maxDepth), nil
}

func scanSingleFile(path string, size int64) *Result {
	lang := DetectLanguage(path)
	lines := countLines(path)
	r := &Result{
		Target:     path,
		IsFile:     true,
		TotalFiles: 1,
		TotalLines: lines,
		TotalBytes: size,
		Languages:  map[string]LangStats{lang: {Files: 1, Lines: lines, Bytes: size}},
		Files: []FileInfo{{
			Path:      path,
			Size:      size,
			Lines:     lines,
			Language:  lang,
			Structure: ExtractStructure(path),
		}},
	}
	return r
}

func scanDirectory(root string, maxDepth int) *Result {
	r := &Result{Target: root, Languages: map[string]LangStats{}}

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		if depth > maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("unreadable: %s", dir))
			return
		}
		// Directories first, then files, both name-ordered.
		sort.Slice(entries, func(i, j int) bool {
			di, dj := entries[i].IsDir(), entries[j].IsDir()
			if di != dj {
				return di
			}
			return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
		})
		for _, e := range entries {
			full := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if ShouldSkipDir(e.Name()) {
					continue
				}
				rel, _ := filepath.Rel(root, full)
				r.Directories = append(r.Directories, rel)
				walk(full, depth+1)
				continue
			}
			if ShouldSkipFile(full) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				r.Errors = append(r.Errors, fmt.Sprintf("unreadable: %s", full))
				continue
			}
			if info.Size() > MaxFileSize {
				continue
			}
			lang := DetectLanguage(full)
			lines := countLines(full)
			rel, _ := filepath.Rel(root, full)
			r.Files = append(r.Files, FileInfo{
				Path:      rel,
				Size:      info.Size(),
				Lines:     lines,
				Language:  lang,
				Structure: ExtractStructure(full),
			})
			r.TotalLines += lines
			r.TotalBytes += info.Size()
			st := r.Languages[lang]
			st.Files++
			st.Lines += lines
			st.Bytes += info.Size()
			r.Languages[lang] = st
		}
	}
	walk(root, 0)
	r.TotalFiles = len(r.Files)
	return r
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
	}
	return n
}

// FormatResult renders a scan result as a bounded summary.
func FormatResult(r *Result) string {
	var b strings.Builder
	kind := "directory"
	if r.IsFile {
		kind = "file"
	}
	fmt.Fprintf(&b, "Target: %s\n", r.Target)
	fmt.Fprintf(&b, "Type: %s\n", kind)
	fmt.Fprintf(&b, "Files: %d\n", r.TotalFiles)
	fmt.Fprintf(&b, "Lines: %d\n", r.TotalLines)
	fmt.Fprintf(&b, "Size: %s\n\n", FormatBytes(r.TotalBytes))

	if len(r.Languages) > 0 {
		b.WriteString("Languages:\n")
		for _, lang := range sortedLanguages(r.Languages) {
			st := r.Languages[lang]
			fmt.Fprintf(&b, "  %s: %d files, %d lines\n", lang, st.Files, st.Lines)
		}
		b.WriteString("\n")
	}

	if len(r.Directories) > 0 {
		fmt.Fprintf(&b, "Directories (%d):\n", len(r.Directories))
		for i, d := range r.Directories {
			if i >= 30 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.Directories)-30)
				break
			}
			fmt.Fprintf(&b, "  %s/\n", d)
		}
		b.WriteString("\n")
	}

	if len(r.Files) > 0 {
		fmt.Fprintf(&b, "Files (%d):\n", len(r.Files))
		for i, f := range r.Files {
			var structure string
			if len(f.Structure) > 0 {
				names := make([]string, 0, 5)
				for _, it := range f.Structure {
					if len(names) == 5 {
						break
					}
					names = append(names, it.Name)
				}
				more := ""
				if len(f.Structure) > 5 {
					more = "..."
				}
				structure = fmt.Sprintf(" [%s%s]", strings.Join(names, ", "), more)
			}
			fmt.Fprintf(&b, "  %s (%d lines, %s)%s\n", f.Path, f.Lines, f.Language, structure)
			if b.Len() > bound.MaxOutput-200 {
				if remaining := len(r.Files) - i - 1; remaining > 0 {
					fmt.Fprintf(&b, "  ... and %d more files\n", remaining)
				}
				break
			}
		}
	}

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}

	return bound.Truncate(strings.TrimRight(b.String(), "\n"), "scan")
}

// FormatBytes renders a byte count as a short human string.
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	v := float64(size)
	for i, u := range units {
		v /= unit
		if v < unit || i == len(units)-1 {
			return fmt.Sprintf("%.1f %s", v, u)
		}
	}
	return ""
}

func sortedLanguages(m map[string]LangStats) []string {
	langs := make([]string, 0, len(m))
	for l := range m {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if m[langs[i]].Lines != m[langs[j]].Lines {
			return m[langs[i]].Lines > m[langs[j]].Lines
		}
		return langs[i] < langs[j]
	})
	return langs
}

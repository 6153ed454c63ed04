// Package extractor retrieves actual content: line ranges, chunks
// looked up in a manifest, or regex matches with context. Its output
// is meant for subordinate agents; callers gate anything that goes
// back to the orchestrator.
package extractor

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"rlm/internal/chunker"
	"rlm/internal/model"
)

// DefaultContext is the grep context window in lines.
const DefaultContext = 5

// Lines returns the 1-indexed inclusive range [start, end] of a file
// with line-number prefixes. Out-of-range requests clamp to the file.
func Lines(path string, start, end int) (string, error) {
	lines, err := readLines(path)
	if err != nil {
		return "", err
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return "", fmt.Errorf("no content for lines %d-%d in %s: %w", start, end, path, model.ErrInvalidArgument)
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%6d| %s\n", i, strings.TrimRight(lines[i-1], " \t\r"))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Chunk looks up chunkID in the manifest at manifestPath and extracts
// its slice. File-group chunks list their files instead of content.
func Chunk(manifestPath, chunkID string) (string, error) {
	m, err := chunker.LoadManifest(manifestPath)
	if err != nil {
		return "", err
	}
	c, ok := m.FindChunk(chunkID)
	if !ok {
		return "", fmt.Errorf("chunk %q not in manifest %s: %w", chunkID, manifestPath, model.ErrNotFound)
	}
	if c.IsFileGroup() {
		var b strings.Builder
		fmt.Fprintf(&b, "Group %s (%d files):\n", c.GroupName, c.FileCount)
		for _, f := range c.Files {
			fmt.Fprintf(&b, "  %s\n", f)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}
	return Lines(c.SourceFile, c.StartLine, c.EndLine)
}

// Grep returns every match of pattern in a file with contextLines of
// surrounding context. Overlapping windows merge, source order is
// preserved, matched lines carry a ">>" marker. An empty match set is
// not an error.
func Grep(path, pattern string, contextLines int) (string, error) {
	lines, err := readLines(path)
	if err != nil {
		return "", err
	}
	out, err := GrepContent(strings.Join(lines, "\n"), pattern, contextLines)
	if err != nil {
		return "", err
	}
	if out == "" {
		return fmt.Sprintf("No matches found for pattern %q in %s", pattern, path), nil
	}
	return out, nil
}

// GrepContent is Grep over an in-memory string. It returns "" when
// nothing matches so callers can supply their own location in the
// no-match message.
func GrepContent(content, pattern string, contextLines int) (string, error) {
	if contextLines < 0 {
		return "", fmt.Errorf("context must be >= 0: %w", model.ErrInvalidArgument)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regex %q: %w", pattern, model.ErrInvalidArgument)
	}

	lines := strings.Split(content, "\n")
	matched := map[int]bool{}
	var matchIdx []int
	for i, line := range lines {
		if re.MatchString(line) {
			matched[i] = true
			matchIdx = append(matchIdx, i)
		}
	}
	if len(matchIdx) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, region := range mergeRegions(matchIdx, contextLines, len(lines)) {
		if b.Len() > 0 {
			b.WriteString("---\n")
		}
		for i := region[0]; i <= region[1] && i < len(lines); i++ {
			marker := "  "
			if matched[i] {
				marker = ">>"
			}
			fmt.Fprintf(&b, "%s %6d| %s\n", marker, i+1, strings.TrimRight(lines[i], " \t\r"))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// mergeRegions coalesces overlapping or adjacent context windows
// around 0-indexed match positions.
func mergeRegions(matches []int, context, total int) [][2]int {
	var regions [][2]int
	start := clampLow(matches[0] - context)
	end := clampHigh(matches[0]+context, total)
	for _, idx := range matches[1:] {
		ns := clampLow(idx - context)
		ne := clampHigh(idx+context, total)
		if ns <= end+1 {
			end = ne
		} else {
			regions = append(regions, [2]int{start, end})
			start, end = ns, ne
		}
	}
	return append(regions, [2]int{start, end})
}

func clampLow(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampHigh(v, total int) int {
	if v > total-1 {
		return total - 1
	}
	return v
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s: %w", path, model.ErrNotFound)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

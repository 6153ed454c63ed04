// Package chunker decomposes files and directories into content-free
// manifests. Chunk ids are deterministic hashes so identical inputs
// produce identical manifests across runs and hosts.
package chunker

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"rlm/internal/model"
	"rlm/internal/scanner"
)

// Defaults for the tunable strategies.
const (
	DefaultChunkSize  = 500
	DefaultOverlap    = 50
	DefaultTargetSize = 50000
	DefaultHeadLevel  = 2
)

// ChunkID derives the stable id for a line-range chunk.
func ChunkID(source string, start, end int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", source, start, end)))
	return hex.EncodeToString(sum[:])[:16]
}

// GroupChunkID derives the stable id for a file-group chunk.
func GroupChunkID(groupName string, fileCount int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", groupName, fileCount)))
	return hex.EncodeToString(sum[:])[:16]
}

// ByLines splits a file into fixed line windows with overlap.
func ByLines(path string, chunkSize, overlap int) (*model.Manifest, error) {
	abs, lines, err := readFileLines(path)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d out of range for chunk size %d: %w", overlap, chunkSize, model.ErrInvalidArgument)
	}

	m := &model.Manifest{SourceFile: abs, Strategy: "lines", TotalLines: len(lines)}
	start := 1
	for start <= len(lines) {
		end := start + chunkSize - 1
		if end > len(lines) {
			end = len(lines)
		}
		m.Chunks = append(m.Chunks, lineChunk(abs, lines, start, end))
		if end >= len(lines) {
			break
		}
		start = end - overlap + 1
	}
	m.ChunkCount = len(m.Chunks)
	return m, nil
}

// ByFunctions splits a file at function/class boundaries from the
// structure outline, with gap chunks for the stretches in between.
// Files with no detectable structure fall back to semantic chunking.
func ByFunctions(path string) (*model.Manifest, error) {
	abs, lines, err := readFileLines(path)
	if err != nil {
		return nil, err
	}
	structure := scanner.ExtractStructure(abs)
	if len(structure) == 0 {
		return BySemantic(path, DefaultTargetSize)
	}

	m := &model.Manifest{SourceFile: abs, Strategy: "functions", TotalLines: len(lines)}
	prevEnd := 0
	addGap := func(start, end int) {
		if end-start <= 2 {
			return
		}
		c := lineChunk(abs, lines, start, end)
		c.Kind = "gap"
		c.Name = fmt.Sprintf("gap_%d_%d", start, end)
		m.Chunks = append(m.Chunks, c)
	}
	for _, item := range structure {
		if item.StartLine > prevEnd+1 {
			addGap(prevEnd+1, item.StartLine-1)
		}
		end := item.EndLine
		if end < item.StartLine {
			end = item.StartLine
		}
		c := lineChunk(abs, lines, item.StartLine, end)
		c.Kind = item.Kind
		c.Name = item.Name
		m.Chunks = append(m.Chunks, c)
		if end > prevEnd {
			prevEnd = end
		}
	}
	if prevEnd < len(lines) {
		addGap(prevEnd+1, len(lines))
	}
	m.ChunkCount = len(m.Chunks)
	return m, nil
}

// ByHeadings splits a markdown file at headings of the given level or
// shallower. Content before the first heading becomes a preamble chunk.
// Files without headings fall back to semantic chunking.
func ByHeadings(path string, level int) (*model.Manifest, error) {
	abs, lines, err := readFileLines(path)
	if err != nil {
		return nil, err
	}
	if level < 1 || level > 6 {
		return nil, fmt.Errorf("heading level %d out of range: %w", level, model.ErrInvalidArgument)
	}

	headingRe := regexp.MustCompile(fmt.Sprintf(`^(#{1,%d})\s+(.+)`, level))
	type heading struct {
		line  int
		title string
	}
	var headings []heading
	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			headings = append(headings, heading{line: i + 1, title: strings.TrimSpace(m[2])})
		}
	}
	if len(headings) == 0 {
		return BySemantic(path, DefaultTargetSize)
	}

	m := &model.Manifest{SourceFile: abs, Strategy: "headings", TotalLines: len(lines)}
	if headings[0].line > 1 {
		c := lineChunk(abs, lines, 1, headings[0].line-1)
		c.Heading = "(preamble)"
		m.Chunks = append(m.Chunks, c)
	}
	for i, h := range headings {
		end := len(lines)
		if i+1 < len(headings) {
			end = headings[i+1].line - 1
		}
		c := lineChunk(abs, lines, h.line, end)
		c.Heading = h.title
		m.Chunks = append(m.Chunks, c)
	}
	m.ChunkCount = len(m.Chunks)
	return m, nil
}

// BySemantic coalesces blank-line-separated blocks into chunks of
// roughly targetSize characters.
func BySemantic(path string, targetSize int) (*model.Manifest, error) {
	abs, lines, err := readFileLines(path)
	if err != nil {
		return nil, err
	}
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	m := &model.Manifest{SourceFile: abs, Strategy: "semantic", TotalLines: len(lines)}
	if len(lines) == 0 {
		return m, nil
	}

	boundaries := []int{0}
	for i, line := range lines {
		if i > 0 && strings.TrimSpace(line) == "" {
			boundaries = append(boundaries, i)
		}
	}
	boundaries = append(boundaries, len(lines))

	startIdx := 0
	current := 0
	for i := 1; i < len(boundaries); i++ {
		for j := boundaries[i-1]; j < boundaries[i] && j < len(lines); j++ {
			current += len(lines[j]) + 1
		}
		if current >= targetSize || i == len(boundaries)-1 {
			startLine := boundaries[startIdx] + 1
			endLine := boundaries[i]
			if endLine >= startLine {
				c := lineChunk(abs, lines, startLine, endLine)
				c.CharCount = current
				m.Chunks = append(m.Chunks, c)
			}
			startIdx = i
			current = 0
		}
	}
	m.ChunkCount = len(m.Chunks)
	return m, nil
}

// ByFiles groups a directory's files into chunks. groupBy is one of
// "directory", "language", or "balanced".
func ByFiles(dir, groupBy string, targetSize int) (*model.Manifest, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s: %w", dir, model.ErrNotFound)
	}
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	files := collectFiles(root)

	var groups []fileGroup
	switch groupBy {
	case "directory":
		groups = groupByDirectory(files)
	case "language":
		groups = groupByLanguage(files)
	case "balanced":
		groups = groupBalanced(files, targetSize)
	default:
		return nil, fmt.Errorf("unknown group-by %q: %w", groupBy, model.ErrInvalidArgument)
	}

	m := &model.Manifest{SourceDir: root, Strategy: "files_" + groupBy, TotalFiles: len(files)}
	for _, g := range groups {
		totalLines := 0
		var totalChars int64
		paths := make([]string, 0, len(g.files))
		names := make([]string, 0, 5)
		for _, f := range g.files {
			totalLines += f.lines
			totalChars += f.size
			paths = append(paths, f.path)
			if len(names) < 5 {
				names = append(names, filepath.Base(f.path))
			}
		}
		more := ""
		if len(paths) > 5 {
			more = "..."
		}
		m.Chunks = append(m.Chunks, model.Chunk{
			ChunkID:    GroupChunkID(g.name, len(paths)),
			GroupName:  g.name,
			Files:      paths,
			FileCount:  len(paths),
			TotalLines: totalLines,
			CharCount:  int(totalChars),
			Preview:    fmt.Sprintf("%d files: %s%s", len(paths), strings.Join(names, ", "), more),
		})
	}
	m.ChunkCount = len(m.Chunks)
	return m, nil
}

type fileMeta struct {
	path     string
	relative string
	size     int64
	lines    int
	language string
}

type fileGroup struct {
	name  string
	files []fileMeta
}

func collectFiles(root string) []fileMeta {
	var files []fileMeta
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && scanner.ShouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if scanner.ShouldSkipFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > scanner.MaxFileSize {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		files = append(files, fileMeta{
			path:     path,
			relative: rel,
			size:     info.Size(),
			lines:    countLines(path),
			language: scanner.DetectLanguage(path),
		})
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].relative < files[j].relative })
	return files
}

func groupByDirectory(files []fileMeta) []fileGroup {
	byName := map[string]*fileGroup{}
	var order []string
	for _, f := range files {
		parent := filepath.Dir(f.relative)
		if parent == "." {
			parent = "(root)"
		}
		g, ok := byName[parent]
		if !ok {
			g = &fileGroup{name: parent}
			byName[parent] = g
			order = append(order, parent)
		}
		g.files = append(g.files, f)
	}
	sort.Strings(order)
	groups := make([]fileGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, *byName[name])
	}
	return groups
}

func groupByLanguage(files []fileMeta) []fileGroup {
	byName := map[string]*fileGroup{}
	var order []string
	for _, f := range files {
		g, ok := byName[f.language]
		if !ok {
			g = &fileGroup{name: f.language}
			byName[f.language] = g
			order = append(order, f.language)
		}
		g.files = append(g.files, f)
	}
	sort.Strings(order)
	groups := make([]fileGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, *byName[name])
	}
	return groups
}

// groupBalanced first-fit packs files into groups of at most
// targetSize bytes. Files are ordered by size descending then path
// ascending so identical trees partition identically everywhere.
func groupBalanced(files []fileMeta, targetSize int) []fileGroup {
	ordered := make([]fileMeta, len(files))
	copy(ordered, files)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].size != ordered[j].size {
			return ordered[i].size > ordered[j].size
		}
		return ordered[i].relative < ordered[j].relative
	})

	var groups []fileGroup
	sizes := []int64{}
	for _, f := range ordered {
		placed := false
		for i := range groups {
			if sizes[i]+f.size <= int64(targetSize) {
				groups[i].files = append(groups[i].files, f)
				sizes[i] += f.size
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, fileGroup{
				name:  fmt.Sprintf("group_%d", len(groups)),
				files: []fileMeta{f},
			})
			sizes = append(sizes, f.size)
		}
	}
	return groups
}

func lineChunk(source string, lines []string, start, end int) model.Chunk {
	return model.Chunk{
		ChunkID:    ChunkID(source, start, end),
		SourceFile: source,
		StartLine:  start,
		EndLine:    end,
		CharCount:  estimateChars(lines, start, end),
		Preview:    preview(lines, start),
	}
}

func readFileLines(path string) (string, []string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("not a file: %s: %w", path, model.ErrNotFound)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("not a file: %s: %w", path, model.ErrInvalidArgument)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return abs, lines, nil
}

func countLines(path string) int {
	_, lines, err := readFileLines(path)
	if err != nil {
		return 0
	}
	return len(lines)
}

const previewMaxLen = 120

// preview returns the first non-blank line at or after start, shortened.
func preview(lines []string, start int) string {
	for i := start - 1; i < len(lines) && i < start+5; i++ {
		s := strings.TrimSpace(lines[i])
		if s == "" {
			continue
		}
		if len(s) > previewMaxLen {
			return s[:previewMaxLen] + "..."
		}
		return s
	}
	return "(empty)"
}

func estimateChars(lines []string, start, end int) int {
	count := 0
	for i := start - 1; i < end && i < len(lines); i++ {
		count += len(lines[i]) + 1
	}
	return count
}

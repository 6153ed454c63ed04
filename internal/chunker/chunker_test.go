package chunker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rlm/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestByLinesCoversEveryLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", numberedLines(1200))

	m, err := ByLines(path, 500, 50)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if m.Strategy != "lines" || m.TotalLines != 1200 {
		t.Errorf("manifest header wrong: %+v", m)
	}
	if m.Chunks[0].StartLine != 1 {
		t.Errorf("first chunk should start at 1, got %d", m.Chunks[0].StartLine)
	}
	last := m.Chunks[len(m.Chunks)-1]
	if last.EndLine != 1200 {
		t.Errorf("last chunk should end at 1200, got %d", last.EndLine)
	}
	// Consecutive chunks overlap by the configured amount.
	for i := 1; i < len(m.Chunks); i++ {
		if m.Chunks[i].StartLine != m.Chunks[i-1].EndLine-50+1 {
			t.Errorf("chunk %d starts at %d, want %d", i, m.Chunks[i].StartLine, m.Chunks[i-1].EndLine-50+1)
		}
	}
}

func TestByLinesRejectsBadOverlap(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.txt", numberedLines(10))

	_, err := ByLines(path, 5, 5)
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestChunkIDsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stable.txt", numberedLines(100))

	m1, err := ByLines(path, 40, 10)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	m2, err := ByLines(path, 40, 10)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(m1.Chunks) != len(m2.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(m1.Chunks), len(m2.Chunks))
	}
	for i := range m1.Chunks {
		if m1.Chunks[i].ChunkID != m2.Chunks[i].ChunkID {
			t.Errorf("chunk %d id differs across runs", i)
		}
		if len(m1.Chunks[i].ChunkID) != 16 {
			t.Errorf("chunk id should be 16 hex chars, got %q", m1.Chunks[i].ChunkID)
		}
	}
}

func TestByFunctionsGoFile(t *testing.T) {
	dir := t.TempDir()
	src := `package demo

import "fmt"

func First() {
	fmt.Println("a")
	fmt.Println("b")
}

func Second() error {
	return nil
}
`
	path := writeFile(t, dir, "demo.go", src)

	m, err := ByFunctions(path)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if m.Strategy != "functions" {
		t.Errorf("strategy = %s", m.Strategy)
	}
	var names []string
	for _, c := range m.Chunks {
		if c.Kind == "function" {
			names = append(names, c.Name)
		}
	}
	if len(names) != 2 || names[0] != "First" || names[1] != "Second" {
		t.Errorf("unexpected function chunks: %v", names)
	}
	// First spans its full body, lines 5-8.
	for _, c := range m.Chunks {
		if c.Name == "First" && (c.StartLine != 5 || c.EndLine != 8) {
			t.Errorf("First = L%d-%d, want L5-8", c.StartLine, c.EndLine)
		}
	}
}

func TestByFunctionsFallsBackWithoutStructure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plain.txt", numberedLines(20))

	m, err := ByFunctions(path)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if m.Strategy != "semantic" {
		t.Errorf("expected semantic fallback, got %s", m.Strategy)
	}
}

func TestByHeadingsPreamble(t *testing.T) {
	dir := t.TempDir()
	doc := "intro text\nmore intro\n\n# One\nbody one\n\n## Sub\nsub body\n\n# Two\nbody two\n"
	path := writeFile(t, dir, "doc.md", doc)

	m, err := ByHeadings(path, 2)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if m.Chunks[0].Heading != "(preamble)" {
		t.Errorf("first chunk should be preamble, got %q", m.Chunks[0].Heading)
	}
	var headings []string
	for _, c := range m.Chunks[1:] {
		headings = append(headings, c.Heading)
	}
	want := []string{"One", "Sub", "Two"}
	if len(headings) != len(want) {
		t.Fatalf("got headings %v, want %v", headings, want)
	}
	for i := range want {
		if headings[i] != want[i] {
			t.Errorf("heading %d = %q, want %q", i, headings[i], want[i])
		}
	}
}

func TestBySemanticSplitsOnBlankLines(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for p := 0; p < 10; p++ {
		b.WriteString(strings.Repeat("words words words words\n", 5))
		b.WriteString("\n")
	}
	path := writeFile(t, dir, "prose.txt", b.String())

	m, err := BySemantic(path, 300)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(m.Chunks) < 2 {
		t.Errorf("expected multiple chunks, got %d", len(m.Chunks))
	}
	if m.Chunks[0].StartLine != 1 {
		t.Errorf("first chunk starts at %d", m.Chunks[0].StartLine)
	}
}

func TestByFilesDirectoryGrouping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "sub/b.go", "package b\n")
	writeFile(t, dir, "sub/c.py", "x = 1\n")

	m, err := ByFiles(dir, "directory", 0)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if m.TotalFiles != 3 || len(m.Chunks) != 2 {
		t.Fatalf("got %d files in %d groups", m.TotalFiles, len(m.Chunks))
	}
	if m.Chunks[0].GroupName != "(root)" || m.Chunks[1].GroupName != "sub" {
		t.Errorf("groups: %q, %q", m.Chunks[0].GroupName, m.Chunks[1].GroupName)
	}
	if !m.Chunks[0].IsFileGroup() {
		t.Error("directory chunks should be file groups")
	}
}

func TestByFilesBalancedDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", strings.Repeat("a", 900))
	writeFile(t, dir, "mid.txt", strings.Repeat("b", 500))
	writeFile(t, dir, "small.txt", strings.Repeat("c", 100))

	m1, err := ByFiles(dir, "balanced", 1000)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	m2, err := ByFiles(dir, "balanced", 1000)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(m1.Chunks) != len(m2.Chunks) {
		t.Fatalf("group counts differ")
	}
	for i := range m1.Chunks {
		if m1.Chunks[i].ChunkID != m2.Chunks[i].ChunkID {
			t.Errorf("group %d id differs across runs", i)
		}
	}
	// 900+100 fits one group, 500 goes to another.
	if len(m1.Chunks) != 2 {
		t.Errorf("expected 2 balanced groups, got %d", len(m1.Chunks))
	}
}

func TestByFilesUnknownGrouping(t *testing.T) {
	dir := t.TempDir()
	_, err := ByFiles(dir, "alphabetical", 0)
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.txt", numberedLines(50))

	m, err := ByLines(path, 20, 5)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	saved, err := SaveManifest(m, dir)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadManifest(saved)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ChunkCount != m.ChunkCount || loaded.Strategy != m.Strategy {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if _, ok := loaded.FindChunk(m.Chunks[0].ChunkID); !ok {
		t.Error("chunk lookup failed after round trip")
	}
}

func TestRecommendFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	md := writeFile(t, dir, "doc.md", "# Title\nbody\n")

	recs, err := Recommend(md)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if recs[0].Strategy != "headings" || recs[0].Priority != 1 {
		t.Errorf("markdown should lead with headings, got %+v", recs[0])
	}

	writeFile(t, dir, "sub/a.go", "package a\n")
	recs, err = Recommend(dir)
	if err != nil {
		t.Fatalf("recommend dir: %v", err)
	}
	if recs[0].Strategy != "files_directory" {
		t.Errorf("small tree should lead with files_directory, got %+v", recs[0])
	}
}

func TestFormatManifestElidesLongListings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", numberedLines(60_000))

	m, err := ByLines(path, 500, 50)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	out := FormatManifest(m)

	if len(out) > 4000 {
		t.Fatalf("rendering is %d bytes", len(out))
	}
	if !strings.Contains(out, "Strategy: lines") || !strings.Contains(out, fmt.Sprintf("Chunks: %d", m.ChunkCount)) {
		t.Errorf("summary lines missing:\n%s", out)
	}
	if !strings.Contains(out, "more chunks") {
		t.Errorf("trailing chunks should be elided:\n%s", out)
	}
	if !strings.Contains(out, m.Chunks[0].ChunkID) {
		t.Errorf("leading chunk ids should still be listed:\n%s", out)
	}
}

// Package model defines the core data types shared across the engine.
package model

// Entry represents a persisted memory record. Metadata queries leave
// Content empty; only Get/GetContent load it.
type Entry struct {
	ID         string       `json:"id"`
	Summary    string       `json:"summary"`
	Tags       []string     `json:"tags"`
	Timestamp  float64      `json:"timestamp"`
	Source     string       `json:"source"`
	SourceName string       `json:"source_name,omitempty"`
	CharCount  int          `json:"char_count"`
	Content    string       `json:"content,omitempty"`
	Chunks     []ContentRef `json:"chunks,omitempty"`
}

// ContentRef is a char-range chunk descriptor attached to large entries
// so memory-extract can pull a slice without returning the whole thing.
type ContentRef struct {
	ChunkID   string `json:"chunk_id"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	CharCount int    `json:"char_count"`
	Preview   string `json:"preview,omitempty"`
}

// SearchHit is a metadata-only entry with its BM25 score.
// Score is the negated bm25() rank, so higher is better for display.
type SearchHit struct {
	Entry
	Score        float64 `json:"score"`
	SizeCategory string  `json:"size_category,omitempty"`
}

// Chunk is a content-free descriptor of a slice of a target. It is a
// tagged variant: line-range chunks carry SourceFile/StartLine/EndLine,
// file-group chunks carry GroupName/Files. Both share ChunkID,
// CharCount, and Preview.
type Chunk struct {
	ChunkID    string   `json:"chunk_id"`
	SourceFile string   `json:"source_file,omitempty"`
	StartLine  int      `json:"start_line,omitempty"`
	EndLine    int      `json:"end_line,omitempty"`
	GroupName  string   `json:"group_name,omitempty"`
	Files      []string `json:"files,omitempty"`
	FileCount  int      `json:"file_count,omitempty"`
	TotalLines int      `json:"total_lines,omitempty"`
	CharCount  int      `json:"char_count"`
	Preview    string   `json:"preview,omitempty"`
	Kind       string   `json:"type,omitempty"`
	Name       string   `json:"name,omitempty"`
	Heading    string   `json:"heading,omitempty"`
}

// IsFileGroup reports whether the chunk describes a file group rather
// than a line range.
func (c Chunk) IsFileGroup() bool { return c.GroupName != "" }

// Manifest is an ordered collection of chunks over a target.
type Manifest struct {
	SourceFile   string  `json:"source_file,omitempty"`
	SourceDir    string  `json:"source_dir,omitempty"`
	Strategy     string  `json:"strategy"`
	TotalLines   int     `json:"total_lines,omitempty"`
	TotalFiles   int     `json:"total_files,omitempty"`
	ChunkCount   int     `json:"chunk_count"`
	ManifestPath string  `json:"manifest_path,omitempty"`
	Chunks       []Chunk `json:"chunks"`
}

// FindChunk returns the chunk with the given id, or false.
func (m *Manifest) FindChunk(chunkID string) (Chunk, bool) {
	for _, c := range m.Chunks {
		if c.ChunkID == chunkID {
			return c, true
		}
	}
	return Chunk{}, false
}

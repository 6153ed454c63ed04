package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// importLegacyJSON migrates the old JSON-file memory layout
// (index.json plus entries/<id>.json) into the database, once. After
// a successful import the index file is renamed so the migration
// never reruns; the JSON files are otherwise left alone.
func (s *SQLiteStore) importLegacyJSON(dir string) error {
	indexPath := filepath.Join(dir, "index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var index struct {
		Entries []struct {
			ID string `json:"id"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("parse %s: %w", indexPath, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ref := range index.Entries {
		entryPath := filepath.Join(dir, "entries", ref.ID+".json")
		raw, err := os.ReadFile(entryPath)
		if err != nil {
			continue
		}
		var legacy struct {
			ID         string          `json:"id"`
			Summary    string          `json:"summary"`
			Tags       []string        `json:"tags"`
			Timestamp  float64         `json:"timestamp"`
			Source     string          `json:"source"`
			SourceName string          `json:"source_name"`
			CharCount  int             `json:"char_count"`
			Content    string          `json:"content"`
			Chunks     json.RawMessage `json:"chunks"`
		}
		if err := json.Unmarshal(raw, &legacy); err != nil {
			continue
		}
		if legacy.Source == "" {
			legacy.Source = "text"
		}
		if legacy.CharCount == 0 {
			legacy.CharCount = len(legacy.Content)
		}
		tagsJSON, _ := json.Marshal(normalizeTags(legacy.Tags))
		var chunks *string
		if len(legacy.Chunks) > 0 && string(legacy.Chunks) != "null" {
			str := string(legacy.Chunks)
			chunks = &str
		}
		var sourceName *string
		if legacy.SourceName != "" {
			sourceName = &legacy.SourceName
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO entries (id, summary, tags, timestamp, source, source_name, char_count, content, chunks)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			legacy.ID, legacy.Summary, string(tagsJSON), legacy.Timestamp,
			legacy.Source, sourceName, legacy.CharCount, legacy.Content, chunks)
		if err != nil {
			return fmt.Errorf("import %s: %w", legacy.ID, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return os.Rename(indexPath, indexPath+".imported")
}

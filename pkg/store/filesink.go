package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink is the secondary, best-effort sink: the same document written
// as a local JSON file keyed by destination and id. It is a cache for
// operators when the primary store is unreachable, never a substitute for
// the primary write.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Write replaces any previous file for the same document id.
func (s *FileSink) Write(destination string, doc *Document) error {
	dir := filepath.Join(s.dir, destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating fallback dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding fallback document: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, doc.ID+".json"), data, 0o644)
}

package prompts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/manyoso/GPT4ALL-collector/internal/jsonl"
)

// FileSource loads prompts from a line-delimited JSON file. Each line must be
// an object carrying a string "prompt" field; extra fields are ignored.
type FileSource struct {
	// Path is the location of the prompt file.
	Path string
}

// NewFileSource creates a file-backed prompt source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Name returns the source identifier.
func (s *FileSource) Name() string {
	return "file"
}

// Load reads and decodes every prompt record in the file. Any unreadable or
// malformed record fails the whole load: a partial prompt list would silently
// shrink the run.
func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	lines, err := jsonl.ReadAll(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("record %d in %s: %w", i+1, s.Path, err)
		}
		if rec.Prompt == "" {
			return nil, fmt.Errorf("record %d in %s: missing or empty \"prompt\" field", i+1, s.Path)
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ Source = (*FileSource)(nil)

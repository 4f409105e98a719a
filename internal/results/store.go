package results

import (
	"fmt"
	"sync"

	"github.com/manyoso/GPT4ALL-collector/internal/jsonl"
)

// FailsPath derives the failure store location from the output path.
// data.jsonl -> data.jsonl_fails.jsonl
func FailsPath(outputPath string) string {
	return outputPath + "_fails.jsonl"
}

// Store writes completed records to the output file and failed prompts to the
// failure file. Both are append-only, so reruns accumulate rather than
// overwrite. The failure file is only created once the first failure lands.
type Store struct {
	mu      sync.Mutex
	results *jsonl.AppendWriter
	fails   *jsonl.AppendWriter

	failsPath string
}

// Open prepares the store for the given output path. The output file is
// opened immediately so an unwritable path fails the run before any API
// calls are spent.
func Open(outputPath string) (*Store, error) {
	results, err := jsonl.OpenAppend(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open output store: %w", err)
	}
	return &Store{
		results:   results,
		failsPath: FailsPath(outputPath),
	}, nil
}

// Path returns the output store location.
func (s *Store) Path() string {
	return s.results.Path()
}

// FailsPath returns the failure store location.
func (s *Store) FailsPath() string {
	return s.failsPath
}

// WriteResult appends one completed record to the output store.
func (s *Store) WriteResult(rec Record) error {
	return s.results.Append(rec)
}

// WriteFailure appends the failed prompt, bare, to the failure store.
func (s *Store) WriteFailure(prompt string) error {
	s.mu.Lock()
	if s.fails == nil {
		w, err := jsonl.OpenAppend(s.failsPath)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to open failure store: %w", err)
		}
		s.fails = w
	}
	fails := s.fails
	s.mu.Unlock()

	return fails.Append(prompt)
}

// Close flushes and closes both stores.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.results.Close()
	if s.fails != nil {
		if ferr := s.fails.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

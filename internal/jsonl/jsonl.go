// Package jsonl implements the line-delimited JSON stores the collector
// reads prompts from and appends results to. A store is a plain file with
// one JSON value per line; readers materialize the whole store, writers
// only ever append.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// maxLineBytes bounds a single record. Model responses can run long, so
// this is well above the bufio.Scanner default of 64 KiB.
const maxLineBytes = 16 * 1024 * 1024

// ReadAll reads every record from the store at path, in file order.
// Blank lines are skipped. A line that is not valid JSON fails the whole
// read with its line number; partial results are never returned.
func ReadAll(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("line %d in %s: invalid JSON record", lineNum, path)
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}
	return records, nil
}

// AppendWriter appends JSON records to a store, one per line.
// It is safe for concurrent use: each record is marshaled and written with
// a single Write call under a mutex, so records from different goroutines
// never interleave. Atomicity across processes is delegated to the OS
// O_APPEND contract.
type AppendWriter struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenAppend opens (or creates) the store at path for appending.
func OpenAppend(path string) (*AppendWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open store for append: %w", err)
	}
	return &AppendWriter{f: f, path: path}, nil
}

// Append marshals v and appends it as one line. The record is durable in
// the store as soon as Append returns; nothing is buffered.
func (w *AppendWriter) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return fmt.Errorf("append to %s: store closed", w.path)
	}
	if _, err := w.f.Write(data); err != nil {
		return fmt.Errorf("append to %s: %w", w.path, err)
	}
	return nil
}

// Path returns the file path the writer appends to.
func (w *AppendWriter) Path() string {
	return w.path
}

// Close closes the underlying file. Further Appends fail.
func (w *AppendWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

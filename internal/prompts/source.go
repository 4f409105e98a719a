// Package prompts loads the prompt list a collection run fans out over.
//
// Prompts come from one of two places: a line-delimited JSON file on disk
// (the common case) or a Redis list shared between machines. Both are exposed
// through the Source interface so the dispatcher does not care where the
// prompts came from.
package prompts

import "context"

// Record is a single prompt to collect a completion for.
type Record struct {
	Prompt string `json:"prompt"`
}

// Source defines the interface for loading the prompt list.
type Source interface {
	// Name returns the source identifier (e.g., "file", "redis")
	Name() string

	// Load reads the full prompt list. The list is read once up front;
	// sharding and dispatch happen in memory afterwards.
	Load(ctx context.Context) ([]Record, error)
}

// Package results persists collection output: one append-only store for
// successful completions and a sibling store for the prompts that failed.
package results

// Record is one collected completion, written as a single line of the
// output store.
type Record struct {
	Prompt        string         `json:"prompt"`
	Response      string         `json:"response"`
	ModelSettings map[string]any `json:"model_settings"`
	Source        string         `json:"source"`
}

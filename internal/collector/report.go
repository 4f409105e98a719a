package collector

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of one prompt.
type Outcome int

const (
	// OutcomeSucceeded means a completion was collected and recorded.
	OutcomeSucceeded Outcome = iota

	// OutcomeFailed means the prompt was written to the failure store.
	OutcomeFailed

	// OutcomeSkipped means the prompt was abandoned, either because an
	// earlier prompt in its shard hit a fatal error or because the run was
	// cancelled before the prompt was dispatched.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Snapshot is the dispatcher's running tally, passed to the progress hook
// after every change. Counts only ever increase.
type Snapshot struct {
	TotalPrompts int
	TotalShards  int
	DoneShards   int
	Succeeded    int
	Failed       int
	Skipped      int
	FatalUnits   int

	// LastPrompt is the most recent prompt to succeed or fail, for display.
	// Skip updates leave it unchanged.
	LastPrompt  string
	LastOutcome Outcome
}

// Done returns how many prompts have reached a terminal state.
func (s Snapshot) Done() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// BatchReport summarizes a finished run. Succeeded + Failed + Skipped always
// equals TotalPrompts, interrupted or not: prompts never dispatched count as
// skipped.
type BatchReport struct {
	TotalPrompts int
	TotalShards  int
	Succeeded    int
	Failed       int
	Skipped      int

	// FatalUnits is the number of shards cut short by a unit-fatal error.
	FatalUnits int

	// Interrupted reports whether the run was cancelled before finishing.
	Interrupted bool

	Elapsed time.Duration
}

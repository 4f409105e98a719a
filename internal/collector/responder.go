package collector

import (
	"context"

	"github.com/manyoso/GPT4ALL-collector/internal/openai"
	"github.com/manyoso/GPT4ALL-collector/internal/results"
)

// Completer is the completion API surface the collector depends on.
type Completer interface {
	// Complete returns the completion text for prompt, authenticated with
	// apiKey. Errors are classified with openai.IsRecoverable.
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// KeyPicker selects the credential a shard will use.
type KeyPicker interface {
	Pick() string
}

// Sink receives terminal per-prompt records.
type Sink interface {
	WriteResult(rec results.Record) error
	WriteFailure(prompt string) error
}

// responder works through one shard: one credential picked up front, prompts
// strictly in order. It reports each prompt's terminal state to the tally as
// it lands, so output appears continuously rather than at shard boundaries.
type responder struct {
	client   Completer
	sink     Sink
	settings map[string]any
	source   string

	// done counts this shard's prompts that reached a terminal state. The
	// dispatcher's panic handler uses it to skip whatever is left.
	done int
}

// run processes every prompt in the shard and returns the unit-fatal error
// that cut it short, if any. Recognized per-prompt failures are recorded and
// do not stop the shard; anything else abandons the remaining prompts.
func (r *responder) run(ctx context.Context, shard Shard, apiKey string, tally *tally) error {
	for i, rec := range shard.Prompts {
		if err := ctx.Err(); err != nil {
			r.skipRest(tally, shard, i)
			return err
		}

		text, err := r.client.Complete(ctx, apiKey, rec.Prompt)
		switch {
		case err == nil:
			record := results.Record{
				Prompt:        rec.Prompt,
				Response:      text,
				ModelSettings: r.settings,
				Source:        r.source,
			}
			if werr := r.sink.WriteResult(record); werr != nil {
				r.skipRest(tally, shard, i)
				return werr
			}
			tally.succeed(rec.Prompt)
			r.done++

		case openai.IsRecoverable(err):
			// Covers unusable responses and interruption of this prompt's
			// call. The prompt goes to the failure store; a cancellation is
			// then caught at the top of the next iteration.
			if werr := r.sink.WriteFailure(rec.Prompt); werr != nil {
				r.skipRest(tally, shard, i)
				return werr
			}
			tally.fail(rec.Prompt)
			r.done++

		default:
			r.skipRest(tally, shard, i)
			return err
		}
	}
	return nil
}

// skipRest marks the shard's prompts from index from onward as skipped.
func (r *responder) skipRest(tally *tally, shard Shard, from int) {
	n := len(shard.Prompts) - from
	tally.skip(n)
	r.done += n
}

var (
	_ Completer = (*openai.Client)(nil)
	_ Sink      = (*results.Store)(nil)
)

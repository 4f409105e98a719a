package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/manyoso/GPT4ALL-collector/internal/prompts"
)

const (
	// DefaultWorkers bounds how many shards run concurrently.
	DefaultWorkers = 10

	// DefaultShardSize is how many prompts one worker handles per unit.
	DefaultShardSize = 200
)

// Config holds everything a collection run needs. Client, Keys and Sink are
// required; the rest has working defaults.
type Config struct {
	// Workers bounds how many shards run concurrently (default: 10)
	Workers int

	// ShardSize is the number of prompts per unit of work (default: 200)
	ShardSize int

	// Source labels every result record with the prompt list's provenance.
	Source string

	// ModelSettings is recorded verbatim in every result record. Hand the
	// same map to the completion client so the records describe the calls.
	ModelSettings map[string]any

	// Keys picks one credential per shard.
	Keys KeyPicker

	// Client performs the completion calls.
	Client Completer

	// Sink receives result and failure records.
	Sink Sink

	// OnProgress, if set, is called after every tally change. It runs on
	// worker goroutines under the tally lock, so keep it fast.
	OnProgress func(Snapshot)

	// LogFn is an optional callback for logging (if nil, logging is skipped)
	LogFn func(level, msg string)
}

// Dispatcher fans prompt shards out to a bounded worker pool.
type Dispatcher struct {
	config Config
}

// New validates the configuration and creates a dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ShardSize == 0 {
		cfg.ShardSize = DefaultShardSize
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.Workers)
	}
	if cfg.ShardSize < 0 {
		return nil, fmt.Errorf("shard size must be positive, got %d", cfg.ShardSize)
	}
	if cfg.Client == nil {
		return nil, errors.New("completion client is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("credential pool is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("result sink is required")
	}
	return &Dispatcher{config: cfg}, nil
}

func (d *Dispatcher) log(level, format string, args ...any) {
	if d.config.LogFn != nil {
		d.config.LogFn(level, fmt.Sprintf(format, args...))
	}
}

// Run collects a completion for every prompt and blocks until all dispatched
// shards have finished. A report is returned even when the run is cancelled;
// the error is non-nil only for a dispatcher that was never configured.
func (d *Dispatcher) Run(ctx context.Context, records []prompts.Record) (*BatchReport, error) {
	if d.config.Client == nil || d.config.Keys == nil || d.config.Sink == nil {
		return nil, errors.New("dispatcher is not configured, use New")
	}

	start := time.Now()
	shards := Partition(records, d.config.ShardSize)
	tally := newTally(len(records), len(shards), d.config.OnProgress)

	d.log("info", "dispatching %d prompts in %d shards across %d workers",
		len(records), len(shards), d.config.Workers)

	workers := d.config.Workers
	if workers > len(shards) {
		workers = len(shards)
	}

	shardCh := make(chan Shard)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for shard := range shardCh {
				d.runUnit(ctx, shard, tally)
			}
		}()
	}

	// Feed shards until the list is exhausted or the run is cancelled.
	next := 0
feed:
	for next < len(shards) {
		select {
		case shardCh <- shards[next]:
			next++
		case <-ctx.Done():
			break feed
		}
	}
	close(shardCh)
	wg.Wait()

	// Shards never handed to a worker count their prompts as skipped.
	for _, shard := range shards[next:] {
		tally.skip(len(shard.Prompts))
	}

	snap := tally.final()
	report := &BatchReport{
		TotalPrompts: snap.TotalPrompts,
		TotalShards:  snap.TotalShards,
		Succeeded:    snap.Succeeded,
		Failed:       snap.Failed,
		Skipped:      snap.Skipped,
		FatalUnits:   snap.FatalUnits,
		Interrupted:  ctx.Err() != nil,
		Elapsed:      time.Since(start),
	}

	d.log("info", "run finished: %d succeeded, %d failed, %d skipped in %s",
		report.Succeeded, report.Failed, report.Skipped, report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// runUnit processes one shard, converting a panic into a unit-fatal error so
// a bad unit never takes down the batch.
func (d *Dispatcher) runUnit(ctx context.Context, shard Shard, t *tally) {
	r := &responder{
		client:   d.config.Client,
		sink:     d.config.Sink,
		settings: d.config.ModelSettings,
		source:   d.config.Source,
	}

	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.skip(len(shard.Prompts) - r.done)
				err = fmt.Errorf("unit panicked: %v", rec)
			}
		}()
		err = r.run(ctx, shard, d.config.Keys.Pick(), t)
	}()

	switch {
	case err == nil:
		t.unitDone(false)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		d.log("warn", "shard %d interrupted: %v", shard.Index, err)
		t.unitDone(false)
	default:
		d.log("error", "shard %d failed, skipping its remaining prompts: %v", shard.Index, err)
		t.unitDone(true)
	}
}

// tally is the run's shared counter set. All mutation happens under one lock
// and every change is pushed to the progress hook, so consumers see a
// consistent, monotonic sequence of snapshots.
type tally struct {
	mu         sync.Mutex
	snap       Snapshot
	onProgress func(Snapshot)
}

func newTally(totalPrompts, totalShards int, onProgress func(Snapshot)) *tally {
	return &tally{
		snap:       Snapshot{TotalPrompts: totalPrompts, TotalShards: totalShards},
		onProgress: onProgress,
	}
}

func (t *tally) succeed(prompt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Succeeded++
	t.snap.LastPrompt = prompt
	t.snap.LastOutcome = OutcomeSucceeded
	t.emit()
}

func (t *tally) fail(prompt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Failed++
	t.snap.LastPrompt = prompt
	t.snap.LastOutcome = OutcomeFailed
	t.emit()
}

func (t *tally) skip(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Skipped += n
	t.emit()
}

func (t *tally) unitDone(fatal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.DoneShards++
	if fatal {
		t.snap.FatalUnits++
	}
	t.emit()
}

// emit pushes the current snapshot to the hook. Callers hold mu.
func (t *tally) emit() {
	if t.onProgress != nil {
		t.onProgress(t.snap)
	}
}

func (t *tally) final() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

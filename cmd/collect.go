// cmd/collect.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manyoso/GPT4ALL-collector/internal/collector"
	"github.com/manyoso/GPT4ALL-collector/internal/keypool"
	"github.com/manyoso/GPT4ALL-collector/internal/openai"
	"github.com/manyoso/GPT4ALL-collector/internal/prompts"
	"github.com/manyoso/GPT4ALL-collector/internal/results"
	"github.com/manyoso/GPT4ALL-collector/internal/tui"
	"github.com/manyoso/GPT4ALL-collector/internal/ui"
)

var (
	collectKeys      []string
	collectWorkers   int
	collectShardSize int
	collectModelName string
	collectSource    string
	collectSettings  string
	collectTimeout   time.Duration
	collectBaseURL   string
	collectRedisURL  string
	collectNoTUI     bool
)

var collectCmd = &cobra.Command{
	Use:   "collect INPUT OUTPUT",
	Short: "Collect chat completions for every prompt in a store",
	Long: `Collect reads prompts from INPUT, requests a chat completion for each one,
and appends the responses to OUTPUT as line-delimited JSON. Prompts whose
responses are unusable are recorded bare in OUTPUT_fails.jsonl so they can be
rerun later.

The prompt list is split into shards and a bounded pool of workers processes
shards concurrently. Each shard picks one API key at random, so handing the
command several keys spreads a large run across accounts.

INPUT is a JSONL file of {"prompt": "..."} records, or the name of a Redis
list when --redis-url is set.

Examples:
  # Collect with a single key from the environment
  collector collect prompts.jsonl data.jsonl

  # Spread a big run across three keys and twenty workers
  collector collect prompts.jsonl data.jsonl -k KEY1 -k KEY2 -k KEY3 --workers=20

  # Pull prompts from a shared Redis backlog
  collector collect prompts data.jsonl --redis-url=redis://localhost:6379

  # Point at a local OpenAI-compatible server
  collector collect prompts.jsonl data.jsonl --base-url=http://localhost:8080/v1`,
	Args: cobra.ExactArgs(2),
	Run:  runCollect,
}

func runCollect(cmd *cobra.Command, args []string) {
	inputPath := args[0]
	outputPath := args[1]

	useTUI := tui.IsTTY() && !collectNoTUI
	status := ui.NewStatusLine()

	keys := resolveAPIKeys()
	if len(keys) == 0 {
		fmt.Fprintf(os.Stderr, "Error: an API key is required. Set --api-key or the OPENAI_API_KEY env var.\n")
		os.Exit(1)
	}

	settings, err := loadModelSettings(collectSettings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sourceLog := func(level, msg string) {
		if useTUI {
			Debug("%s", msg)
			return
		}
		switch level {
		case "error":
			status.Fail(msg)
		case "warn":
			status.Warning(msg)
		default:
			status.Info(msg)
		}
	}

	var source prompts.Source
	if collectRedisURL != "" {
		source = prompts.NewRedisSource(prompts.RedisSourceConfig{
			URL:      collectRedisURL,
			Password: os.Getenv("REDIS_PASSWORD"),
			Key:      inputPath,
			LogFn:    sourceLog,
		})
	} else {
		source = prompts.NewFileSource(inputPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The full prompt list is materialized before anything else happens:
	// shard sizes derive from the total count.
	records, err := source.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := results.Open(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	pool, err := keypool.New(keys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := openai.NewClient(openai.Config{
		BaseURL:  collectBaseURL,
		Model:    collectModelName,
		Timeout:  collectTimeout,
		Settings: settings,
	})

	runID := fmt.Sprintf("run-%s", uuid.New().String()[:8])
	Debug("starting %s: %d prompts from %s into %s", runID, len(records), source.Name(), store.Path())

	cfg := collector.Config{
		Workers:       collectWorkers,
		ShardSize:     collectShardSize,
		Source:        collectSource,
		ModelSettings: settings,
		Keys:          pool,
		Client:        client,
		Sink:          store,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var report *collector.BatchReport
	if useTUI {
		report = runWithTUI(ctx, cancel, cfg, records, sigs)
	} else {
		status.Info(fmt.Sprintf("Collecting completions for %d prompts", len(records)))
		fmt.Printf("   - Run ID: %s\n", runID)
		fmt.Printf("   - Model: %s\n", client.Model())
		fmt.Printf("   - Workers: %d (shard size %d)\n", cfg.Workers, cfg.ShardSize)
		fmt.Printf("   - API keys: %d\n", pool.Size())
		report = runWithMeter(ctx, cancel, cfg, records, sigs)
	}

	if report.Failed > 0 {
		fmt.Printf("   - Failure store: %s\n", store.FailsPath())
	}
	Debug("%s finished: %d succeeded, %d failed, %d skipped", runID,
		report.Succeeded, report.Failed, report.Skipped)
}

// runWithTUI drives the run under the live terminal view. Interrupts are
// handled by the view itself; SIGTERM still cancels from outside.
func runWithTUI(ctx context.Context, cancel context.CancelFunc, cfg collector.Config, records []prompts.Record, sigs chan os.Signal) *collector.BatchReport {
	shardSize := cfg.ShardSize
	if shardSize <= 0 {
		shardSize = collector.DefaultShardSize
	}
	shardCount := (len(records) + shardSize - 1) / shardSize

	model := tui.NewCollectModel(len(records), shardCount, cancel)
	p := tea.NewProgram(model)

	cfg.OnProgress = func(s collector.Snapshot) {
		p.Send(tui.ProgressMsg(s))
	}
	cfg.LogFn = func(level, msg string) {
		Debug("[%s] %s", level, msg)
	}

	d, err := collector.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		report, err := d.Run(ctx, records)
		if err != nil {
			Debug("run error: %v", err)
		}
		p.Send(tui.DoneMsg{Report: report})
	}()

	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report := finalModel.(tui.CollectModel).Report()
	if report == nil {
		fmt.Fprintf(os.Stderr, "Error: run ended without a report\n")
		os.Exit(1)
	}
	return report
}

// runWithMeter drives the run with plain progress output, for --no-tui and
// redirected or non-interactive sessions.
func runWithMeter(ctx context.Context, cancel context.CancelFunc, cfg collector.Config, records []prompts.Record, sigs chan os.Signal) *collector.BatchReport {
	meter := ui.NewMeter(os.Stdout)
	cfg.OnProgress = meter.Update
	cfg.LogFn = func(level, msg string) {
		switch level {
		case "warn", "error":
			meter.Log(level, msg)
		default:
			Debug("%s", msg)
		}
	}

	d, err := collector.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	go func() {
		select {
		case sig := <-sigs:
			meter.Log("warn", fmt.Sprintf("received %v, stopping once in-flight calls drain", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := d.Run(ctx, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	meter.Finish(report)
	return report
}

// resolveAPIKeys gathers credentials from flags first, then the environment.
// OPENAI_API_KEYS holds a comma-separated pool; OPENAI_API_KEY a single key.
func resolveAPIKeys() []string {
	var keys []string
	for _, k := range collectKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		return keys
	}

	if env := os.Getenv("OPENAI_API_KEYS"); env != "" {
		for _, k := range strings.Split(env, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			return keys
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return []string{key}
	}
	return nil
}

// loadModelSettings builds the request settings recorded with every result.
// The default asks the API for the maximum available completion tokens; a
// YAML file can override or extend that.
func loadModelSettings(path string) (map[string]any, error) {
	settings := map[string]any{"max_tokens": -1}
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	var overrides map[string]any
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	for k, v := range overrides {
		settings[k] = v
	}
	return settings, nil
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringSliceVarP(&collectKeys, "api-key", "k", nil, "OpenAI API key, repeatable for a key pool (or set OPENAI_API_KEY / OPENAI_API_KEYS env)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", collector.DefaultWorkers, "Number of shards processed concurrently")
	collectCmd.Flags().IntVar(&collectShardSize, "shard-size", collector.DefaultShardSize, "Prompts per shard; each shard sticks with one API key")
	collectCmd.Flags().StringVar(&collectModelName, "model", openai.DefaultModel, "Model name sent with every request")
	collectCmd.Flags().StringVar(&collectSource, "source", "", "Source label recorded with every result")
	collectCmd.Flags().StringVar(&collectSettings, "settings", "", "YAML file with extra request settings (temperature, top_p, ...)")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", openai.DefaultTimeout, "Timeout for a single completion call")
	collectCmd.Flags().StringVar(&collectBaseURL, "base-url", openai.DefaultBaseURL, "OpenAI-compatible API endpoint")
	collectCmd.Flags().StringVar(&collectRedisURL, "redis-url", "", "Read prompts from a Redis list instead of a file; INPUT names the list")
	collectCmd.Flags().BoolVar(&collectNoTUI, "no-tui", false, "Disable the live terminal view and print plain progress lines")
}

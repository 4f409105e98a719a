// cmd/inspect.go
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/manyoso/GPT4ALL-collector/internal/jsonl"
	"github.com/manyoso/GPT4ALL-collector/internal/results"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	goodColor   = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	badColor    = color.New(color.FgRed)
	labelColor  = color.New(color.Bold)
	noColor     bool // Flag to disable color
)

var inspectCmd = &cobra.Command{
	Use:   "inspect OUTPUT",
	Short: "Summarize a collected dataset and its failure store",
	Long: `Inspect reads a dataset produced by collect and reports what is in it:
record counts, response sizes, the source labels present, and how many
prompts ended up in the sibling failure store.

Because collect appends, a dataset can accumulate records from several runs.
Inspect counts duplicate prompts so rerun overlap is visible.`,
	Example: `  # Summarize a collected dataset
  collector inspect data.jsonl

  # Summarize without colors (for scripts/logging)
  collector inspect data.jsonl --no-color`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) {
	if noColor {
		color.NoColor = true
	}
	path := args[0]

	lines, err := jsonl.ReadAll(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var (
		total     int
		empty     int
		malformed int
		dupes     int

		minLen, maxLen, sumLen int

		seen    = make(map[string]bool)
		sources = make(map[string]int)
	)

	for _, line := range lines {
		var rec results.Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Prompt == "" {
			malformed++
			continue
		}
		total++

		if rec.Response == "" {
			empty++
		}
		if seen[rec.Prompt] {
			dupes++
		}
		seen[rec.Prompt] = true

		label := rec.Source
		if label == "" {
			label = "(unlabeled)"
		}
		sources[label]++

		n := len(rec.Response)
		if total == 1 || n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
		sumLen += n
	}

	failed, failsPath, err := countFailures(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerColor.Fprintf(w, "--- 📊 Dataset Summary (%s) ---\n", path)

	headerColor.Fprintln(w, "\n📦 RECORDS")
	fmt.Fprintf(w, "  %s:\t%d\n", labelColor.Sprint("Total"), total)
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Empty responses"), colorizeCount(empty))
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Malformed lines"), colorizeBad(malformed))
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Duplicate prompts"), colorizeCount(dupes))

	if total > 0 {
		headerColor.Fprintln(w, "\n📏 RESPONSE LENGTH")
		fmt.Fprintf(w, "  %s:\t%d chars\n", labelColor.Sprint("Min"), minLen)
		fmt.Fprintf(w, "  %s:\t%d chars\n", labelColor.Sprint("Max"), maxLen)
		fmt.Fprintf(w, "  %s:\t%d chars\n", labelColor.Sprint("Mean"), sumLen/total)

		headerColor.Fprintln(w, "\n🏷️ SOURCES")
		labels := make([]string, 0, len(sources))
		for label := range sources {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(w, "  - %s:\t%d\n", label, sources[label])
		}
	}

	headerColor.Fprintln(w, "\n⚠️ FAILURE STORE")
	if failed < 0 {
		fmt.Fprintf(w, "  %s\n", goodColor.Sprint("None (no prompts have failed)"))
	} else {
		fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Failed prompts"), colorizeCount(failed))
		fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Path"), failsPath)
	}
}

// countFailures counts records in the failure store next to the dataset.
// Returns -1 when the store was never created, which is the common case for
// clean runs.
func countFailures(outputPath string) (int, string, error) {
	failsPath := results.FailsPath(outputPath)
	lines, err := jsonl.ReadAll(failsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return -1, failsPath, nil
		}
		return 0, failsPath, err
	}
	return len(lines), failsPath, nil
}

func colorizeCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return goodColor.Sprint(s)
	}
	return warnColor.Sprint(s)
}

// colorizeBad is for counts that indicate corruption rather than expected
// failures.
func colorizeBad(n int) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return goodColor.Sprint(s)
	}
	return badColor.Sprint(s)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colorized output")
}

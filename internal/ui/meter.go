// Package ui renders collection progress on a terminal. The Meter rewrites a
// single status line while a run is active and degrades to plain log lines
// when the output is not a TTY, so redirected runs stay readable.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/manyoso/GPT4ALL-collector/internal/collector"
)

const (
	// redrawsPerSecond bounds how often the status line is repainted.
	redrawsPerSecond = 12

	fallbackWidth = 80
)

// Meter displays dispatcher progress. Safe for concurrent Update calls.
type Meter struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	width   int
	limiter *rate.Limiter
	start   time.Time

	lastShards int
	rendered   bool
}

// NewMeter creates a meter writing to w. TTY behavior (line rewriting, width
// detection) activates only when w is a terminal.
func NewMeter(w io.Writer) *Meter {
	m := &Meter{
		w:       w,
		width:   fallbackWidth,
		limiter: rate.NewLimiter(rate.Limit(redrawsPerSecond), 1),
		start:   time.Now(),
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		m.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			m.width = width
		}
	}
	return m
}

// Update renders the latest tally. On a TTY redraws are throttled; otherwise
// a plain line is printed whenever a shard finishes.
func (m *Meter) Update(s collector.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tty {
		if s.DoneShards != m.lastShards {
			m.lastShards = s.DoneShards
			fmt.Fprintf(m.w, "shard %d/%d done: %d ok, %d failed, %d skipped\n",
				s.DoneShards, s.TotalShards, s.Succeeded, s.Failed, s.Skipped)
		}
		return
	}

	if !m.limiter.Allow() {
		return
	}
	m.paint(s)
}

// Log prints a message above the status line without corrupting it. The
// dispatcher's warn and error callbacks land here during a run.
func (m *Meter) Log(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tty && m.rendered {
		fmt.Fprint(m.w, "\r\033[K")
		m.rendered = false
	}

	switch level {
	case "error":
		fmt.Fprintf(m.w, "%s %s\n", color.RedString("✗"), msg)
	case "warn":
		fmt.Fprintf(m.w, "%s %s\n", color.YellowString("⚠"), msg)
	default:
		fmt.Fprintf(m.w, "%s %s\n", color.BlueString("ℹ"), msg)
	}
}

// Finish clears the status line and prints the run summary.
func (m *Meter) Finish(report *collector.BatchReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tty && m.rendered {
		fmt.Fprint(m.w, "\r\033[K")
		m.rendered = false
	}

	status := color.GreenString("✓")
	if report.Interrupted {
		status = color.YellowString("⚠")
	} else if report.Succeeded == 0 && report.TotalPrompts > 0 {
		status = color.RedString("✗")
	}

	fmt.Fprintf(m.w, "%s collected %d/%d prompts in %s\n",
		status, report.Succeeded, report.TotalPrompts, formatDuration(report.Elapsed))
	if report.Failed > 0 {
		fmt.Fprintf(m.w, "%s %d prompts written to the failure store\n",
			color.YellowString("⚠"), report.Failed)
	}
	if report.Skipped > 0 {
		fmt.Fprintf(m.w, "%s %d prompts skipped (%d shards hit fatal errors)\n",
			color.RedString("✗"), report.Skipped, report.FatalUnits)
	}
	if report.Interrupted {
		fmt.Fprintf(m.w, "%s run interrupted before completion\n", color.YellowString("⚠"))
	}
}

// paint rewrites the status line. Callers hold mu.
func (m *Meter) paint(s collector.Snapshot) {
	line := fmt.Sprintf("%s %d/%d prompts %s %s %s",
		color.CyanString("▸"),
		s.Done(), s.TotalPrompts,
		color.GreenString("✓%d", s.Succeeded),
		color.RedString("✗%d", s.Failed+s.Skipped),
		color.HiBlackString("[%d/%d shards, %s]",
			s.DoneShards, s.TotalShards, formatDuration(time.Since(m.start))))

	if s.LastPrompt != "" {
		room := m.width - runewidth.StringWidth(stripANSI(line)) - 2
		if room > 8 {
			preview := strings.ReplaceAll(s.LastPrompt, "\n", " ")
			line += " " + color.HiBlackString("%s", runewidth.Truncate(preview, room, "…"))
		}
	}

	fmt.Fprintf(m.w, "\r\033[K%s", line)
	m.rendered = true
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// stripANSI removes ANSI color codes from a string
func stripANSI(str string) string {
	var result strings.Builder
	inEscape := false
	for i := 0; i < len(str); i++ {
		if str[i] == '\x1b' && i+1 < len(str) && str[i+1] == '[' {
			inEscape = true
			i++ // skip '['
			continue
		}
		if inEscape {
			if (str[i] >= 'A' && str[i] <= 'Z') || (str[i] >= 'a' && str[i] <= 'z') {
				inEscape = false
			}
			continue
		}
		result.WriteByte(str[i])
	}
	return result.String()
}

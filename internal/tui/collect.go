package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/manyoso/GPT4ALL-collector/internal/collector"
)

// ProgressMsg carries a dispatcher snapshot into the view. Send one from the
// dispatcher's progress hook.
type ProgressMsg collector.Snapshot

// DoneMsg ends the view and carries the final report.
type DoneMsg struct {
	Report *collector.BatchReport
}

// tickMsg drives the elapsed-time display between dispatcher events.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// CollectModel is the live view of a collection run: a progress bar over the
// prompt total, per-outcome counts, and a preview of the latest prompt.
type CollectModel struct {
	bar    progress.Model
	snap   collector.Snapshot
	report *collector.BatchReport

	// cancel stops the dispatcher; the view stays up until the run drains
	// and a DoneMsg arrives.
	cancel   func()
	stopping bool

	start time.Time
	width int
}

// NewCollectModel creates the collect view for a run over total prompts in
// the given number of shards.
func NewCollectModel(total, shards int, cancel func()) CollectModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50

	return CollectModel{
		bar:    bar,
		snap:   collector.Snapshot{TotalPrompts: total, TotalShards: shards},
		cancel: cancel,
		start:  time.Now(),
		width:  80,
	}
}

// Report returns the final report once the view has quit.
func (m CollectModel) Report() *collector.BatchReport {
	return m.report
}

// Stopping reports whether the user asked for the run to be interrupted.
func (m CollectModel) Stopping() bool {
	return m.stopping
}

func (m CollectModel) Init() tea.Cmd {
	return tickCmd()
}

func (m CollectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.stopping {
				m.stopping = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			// Quit comes with the DoneMsg once in-flight calls drain.
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 12
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}

	case ProgressMsg:
		m.snap = collector.Snapshot(msg)
		return m, nil

	case DoneMsg:
		m.report = msg.Report
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()
	}

	return m, nil
}

func (m CollectModel) View() string {
	if m.report != nil {
		return m.finalView()
	}

	s := m.snap
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Collecting completions") + "\n\n")

	frac := 0.0
	if s.TotalPrompts > 0 {
		frac = float64(s.Done()) / float64(s.TotalPrompts)
	}
	b.WriteString(m.bar.ViewAs(frac) + "\n\n")

	b.WriteString(fmt.Sprintf("%s  %s  %s\n",
		SuccessStyle.Render(fmt.Sprintf("✓ %d collected", s.Succeeded)),
		WarningStyle.Render(fmt.Sprintf("✗ %d failed", s.Failed)),
		ErrorStyle.Render(fmt.Sprintf("⊘ %d skipped", s.Skipped))))

	b.WriteString(FormatKeyValue("shards", fmt.Sprintf("%d/%d", s.DoneShards, s.TotalShards)) + "  ")
	b.WriteString(FormatKeyValue("elapsed", time.Since(m.start).Round(time.Second).String()) + "\n")

	if s.LastPrompt != "" {
		preview := strings.ReplaceAll(s.LastPrompt, "\n", " ")
		preview = runewidth.Truncate(preview, m.width-10, "…")
		b.WriteString(MutedStyle.Render("last: "+preview) + "\n")
	}

	b.WriteString("\n")
	if m.stopping {
		b.WriteString(WarningStyle.Render("Stopping, waiting for in-flight calls to drain...") + "\n")
	} else {
		b.WriteString(MutedStyle.Render("press ctrl+c to stop") + "\n")
	}

	return PanelStyle.Render(b.String()) + "\n"
}

func (m CollectModel) finalView() string {
	r := m.report
	var b strings.Builder

	if r.Interrupted {
		b.WriteString(WarningStyle.Render("⚠ ") + fmt.Sprintf("interrupted: %d/%d prompts collected in %s\n",
			r.Succeeded, r.TotalPrompts, r.Elapsed.Round(time.Second)))
	} else {
		b.WriteString(SuccessStyle.Render("✓ ") + fmt.Sprintf("collected %d/%d prompts in %s\n",
			r.Succeeded, r.TotalPrompts, r.Elapsed.Round(time.Second)))
	}
	if r.Failed > 0 {
		b.WriteString(WarningStyle.Render("⚠ ") + fmt.Sprintf("%d prompts in the failure store\n", r.Failed))
	}
	if r.Skipped > 0 {
		b.WriteString(ErrorStyle.Render("✗ ") + fmt.Sprintf("%d prompts skipped (%d shards hit fatal errors)\n",
			r.Skipped, r.FatalUnits))
	}
	return b.String()
}

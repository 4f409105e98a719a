package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/manyoso/GPT4ALL-collector/internal/collector"
)

func TestCollectModelProgressUpdates(t *testing.T) {
	m := NewCollectModel(10, 2, nil)

	updated, _ := m.Update(ProgressMsg(collector.Snapshot{
		TotalPrompts: 10,
		TotalShards:  2,
		Succeeded:    3,
		Failed:       1,
		LastPrompt:   "why is the sky blue?",
	}))
	m = updated.(CollectModel)

	view := m.View()
	if !strings.Contains(view, "3 collected") {
		t.Errorf("view missing success count:\n%s", view)
	}
	if !strings.Contains(view, "1 failed") {
		t.Errorf("view missing failure count:\n%s", view)
	}
	if !strings.Contains(view, "why is the sky blue?") {
		t.Errorf("view missing prompt preview:\n%s", view)
	}
}

func TestCollectModelInterruptCallsCancel(t *testing.T) {
	cancelled := false
	m := NewCollectModel(10, 2, func() { cancelled = true })

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(CollectModel)

	if !cancelled {
		t.Error("ctrl+c did not invoke cancel")
	}
	if cmd != nil {
		t.Error("ctrl+c quit immediately, want cooperative drain until DoneMsg")
	}
	if !m.Stopping() {
		t.Error("Stopping() = false after ctrl+c")
	}
	if !strings.Contains(m.View(), "Stopping") {
		t.Errorf("view missing stopping notice:\n%s", m.View())
	}

	// A second ctrl+c stays cooperative and does not re-cancel.
	cancelled = false
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(CollectModel)
	if cancelled {
		t.Error("second ctrl+c invoked cancel again")
	}
}

func TestCollectModelDoneQuitsWithReport(t *testing.T) {
	m := NewCollectModel(4, 1, nil)

	report := &collector.BatchReport{
		TotalPrompts: 4,
		TotalShards:  1,
		Succeeded:    3,
		Failed:       1,
		Elapsed:      2 * time.Second,
	}
	updated, cmd := m.Update(DoneMsg{Report: report})
	m = updated.(CollectModel)

	if cmd == nil {
		t.Fatal("DoneMsg returned nil cmd, want tea.Quit")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("DoneMsg cmd = %v, want tea.QuitMsg", msg)
	}
	if m.Report() != report {
		t.Error("Report() does not return the delivered report")
	}

	view := m.View()
	if !strings.Contains(view, "collected 3/4 prompts") {
		t.Errorf("final view = %q, want summary", view)
	}
	if !strings.Contains(view, "1 prompts in the failure store") {
		t.Errorf("final view = %q, want failure line", view)
	}
}

func TestCollectModelInterruptedFinalView(t *testing.T) {
	m := NewCollectModel(10, 5, nil)

	updated, _ := m.Update(DoneMsg{Report: &collector.BatchReport{
		TotalPrompts: 10,
		Succeeded:    2,
		Skipped:      8,
		Interrupted:  true,
	}})
	m = updated.(CollectModel)

	view := m.View()
	if !strings.Contains(view, "interrupted") {
		t.Errorf("final view = %q, want interruption notice", view)
	}
	if !strings.Contains(view, "8 prompts skipped") {
		t.Errorf("final view = %q, want skip count", view)
	}
}

func TestCollectModelWindowResizeClampsBar(t *testing.T) {
	m := NewCollectModel(10, 2, nil)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 24})
	m = updated.(CollectModel)
	if m.bar.Width < 10 {
		t.Errorf("bar width = %d after narrow resize, want clamped to 10", m.bar.Width)
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 300, Height: 24})
	m = updated.(CollectModel)
	if m.bar.Width > 60 {
		t.Errorf("bar width = %d after wide resize, want clamped to 60", m.bar.Width)
	}
}

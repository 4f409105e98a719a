package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// StatusLine provides simple one-line status updates without animation.
type StatusLine struct {
	writer io.Writer
}

// NewStatusLine creates a new status line writer
func NewStatusLine() *StatusLine {
	return &StatusLine{writer: os.Stdout}
}

// SetWriter sets the output writer
func (sl *StatusLine) SetWriter(w io.Writer) {
	sl.writer = w
}

// Success prints a success status
func (sl *StatusLine) Success(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.GreenString("✓"), message)
}

// Fail prints a failure status
func (sl *StatusLine) Fail(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.RedString("✗"), message)
}

// Warning prints a warning status
func (sl *StatusLine) Warning(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.YellowString("⚠"), message)
}

// Info prints an info status
func (sl *StatusLine) Info(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.BlueString("ℹ"), message)
}

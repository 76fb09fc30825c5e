package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
	active  bool
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
	s.active = true
}

// Stop stops the spinner animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	if !s.active {
		return
	}
	s.spinner.Stop()
	s.active = false
}

// UI writes user facing output
type UI struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
}

// NewUI creates a UI writing to out and errOut
func NewUI(out, errOut io.Writer, noColor bool) *UI {
	return &UI{out: out, errOut: errOut, noColor: noColor}
}

func (ui *UI) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if ui.noColor {
		c.DisableColor()
	}
	return c
}

// Section displays a section header.
func (ui *UI) Section(title string) {
	ui.paint(color.FgCyan, color.Bold).Fprintf(ui.out, "\n%s\n", title)
	fmt.Fprintf(ui.out, "%s\n\n", strings.Repeat("=", len(title)))
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.paint(color.FgGreen).Fprintf(ui.errOut, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.paint(color.FgYellow).Fprintf(ui.errOut, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.paint(color.FgRed).Fprintf(ui.errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.paint(color.FgCyan).Fprintf(ui.errOut, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// incrementalWriter prints only the part of each aggregate that has not
// been written yet
type incrementalWriter struct {
	out     io.Writer
	written int
}

func (w *incrementalWriter) Update(aggregate string) error {
	if len(aggregate) <= w.written {
		return nil
	}
	_, err := io.WriteString(w.out, aggregate[w.written:])
	w.written = len(aggregate)
	return err
}

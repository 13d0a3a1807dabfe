// Package cliui holds the terminal styling shared by relay commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	NameStyle    = lipgloss.NewStyle().Bold(true)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// spinnerFrames is the braille dot spinner.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner animates a message on a single terminal line until stopped.
// A nil *Spinner is valid and does nothing.
type Spinner struct {
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	w       io.Writer
}

// StartSpinner draws msg behind an animated frame on w.
func StartSpinner(w io.Writer, msg string) *Spinner {
	s := &Spinner{
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		w:       w,
	}

	go func() {
		defer close(s.stopped)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()

	return s
}

// Stop halts the animation and clears its line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		fmt.Fprint(s.w, "\r\033[K")
	})
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Outcome prints a ✓ or ✗ line for label with the elapsed time.
func Outcome(w io.Writer, err error, label string, elapsed time.Duration) {
	fmt.Fprintf(w, "  %s %s %s\n",
		Mark(err),
		label,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// KeyValue renders one aligned "key  value" line. An empty value is shown
// as a dimmed "<not set>".
func KeyValue(key, value string, width int) string {
	k := KeyStyle.Render(fmt.Sprintf("%-*s", width, key))
	if value == "" {
		return k + "  " + DimStyle.Render("<not set>")
	}
	return k + "  " + ValueStyle.Render(value)
}

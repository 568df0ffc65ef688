// Package console writes the step-labelled progress of a release run.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// rule is the width of the banner underline.
const rule = 50

// Console prints progress lines to a writer. Colours are only emitted when
// the writer is a terminal.
type Console struct {
	w       io.Writer
	heading lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

// New returns a Console writing to w.
func New(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		success: r.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#E3B341")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
}

// Banner prints the run title followed by a rule.
func (c *Console) Banner(title string) {
	c.println(c.heading.Render("🚀 " + title))
	c.println(strings.Repeat("=", rule))
}

// Phase announces a step that is not a single external command.
func (c *Console) Phase(icon, msg string) {
	c.println(c.heading.Render(icon + " " + msg))
}

// Progress announces an external command.
func (c *Console) Progress(desc string) {
	c.println("🔄 " + desc + "...")
}

// Success prints a completed message.
func (c *Console) Success(msg string) {
	c.println(c.success.Render("✅ " + msg))
}

// Failure prints a failure message.
func (c *Console) Failure(msg string) {
	c.println(c.failure.Render("❌ " + msg))
}

// Warn prints a non-fatal problem.
func (c *Console) Warn(msg string) {
	c.println(c.warning.Render("⚠️  " + msg))
}

// Detail prints an indented secondary line.
func (c *Console) Detail(format string, args ...any) {
	c.println(c.muted.Render("   " + fmt.Sprintf(format, args...)))
}

// Celebrate prints a closing banner preceded by a blank line.
func (c *Console) Celebrate(msg string) {
	c.println("")
	c.println(c.success.Render("🎉 " + msg))
}

// Printf prints an unstyled line.
func (c *Console) Printf(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// Prompt prints a question without a trailing newline.
func (c *Console) Prompt(question string) {
	fmt.Fprint(c.w, question)
}

// Output echoes captured tool output, indented.
func (c *Console) Output(b []byte) {
	text := strings.TrimRight(string(b), "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		c.println(c.muted.Render("    " + line))
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.w, s)
}

// Package ui prints human-readable stage and status lines for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#5FAFFF"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#9E9E9E"}

	StageStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPass)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorWarn)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorFail)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Printer writes status lines. The zero value writes to stdout.
type Printer struct {
	Out   io.Writer
	Quiet bool
}

// NewPrinter returns a Printer on w.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{Out: w, Quiet: quiet}
}

func (p *Printer) out() io.Writer {
	if p == nil || p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

func (p *Printer) line(s string) {
	if p != nil && p.Quiet {
		return
	}
	fmt.Fprintln(p.out(), s)
}

// Stage announces a pipeline step.
func (p *Printer) Stage(format string, args ...any) {
	p.line(StageStyle.Render("→") + " " + fmt.Sprintf(format, args...))
}

// Detail prints an indented secondary line.
func (p *Printer) Detail(format string, args ...any) {
	p.line("  " + MutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Warn reports a recoverable problem.
func (p *Printer) Warn(format string, args ...any) {
	p.line(WarnStyle.Render("! " + fmt.Sprintf(format, args...)))
}

// Success reports completion.
func (p *Printer) Success(format string, args ...any) {
	p.line(SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, args...))
}

// Error reports a fatal failure. It prints even when quiet.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out(), ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Package output provides terminal formatting for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/atim-dev/atim/internal/models"
)

// ColorMode represents color output mode
type ColorMode int

const (
	// ColorAuto enables colors based on environment (default)
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on
	ColorAlways
	// ColorNever forces colors off
	ColorNever
)

// ParseColorMode parses a string into a ColorMode
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "auto", "":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors determines whether to use colors based on mode and environment
func ResolveColors(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return !color.NoColor
	}
}

// Printer handles formatted output to the terminal
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// NewPrinter writes to stdout and stderr.
func NewPrinter(mode ColorMode) *Printer {
	return NewPrinterWithWriters(os.Stdout, os.Stderr, ResolveColors(mode))
}

// NewPrinterWithWriters is NewPrinter with explicit writers.
func NewPrinterWithWriters(out, err io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: err, useColors: useColors}
}

// Out is the writer used for regular output.
func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.useColors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Info prints an informational message
func (p *Printer) Info(format string, args ...any) {
	p.paint(color.FgCyan).Fprintf(p.out, format+"\n", args...)
}

// Success prints a success message
func (p *Printer) Success(format string, args ...any) {
	if p.useColors {
		p.paint(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...any) {
	if p.useColors {
		p.paint(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error prints an error message
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		p.paint(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

// Print prints a plain message
func (p *Printer) Print(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints a section header
func (p *Printer) Header(title string) {
	if p.useColors {
		p.paint(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		p.paint(color.FgWhite).Fprintf(p.out, "%s\n", strings.Repeat("─", len([]rune(title))))
	} else {
		fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len([]rune(title))))
	}
}

// Status returns the status label coloured by direction.
func (p *Printer) Status(s models.Status) string {
	switch s {
	case models.StatusRising:
		return p.paint(color.FgGreen, color.Bold).Sprint(s)
	case models.StatusDeclining:
		return p.paint(color.FgRed, color.Bold).Sprint(s)
	case models.StatusPeaking:
		return p.paint(color.FgYellow, color.Bold).Sprint(s)
	default:
		return p.paint(color.FgWhite).Sprint(s)
	}
}

// Velocity returns a signed velocity, green when positive and red when negative.
func (p *Printer) Velocity(v float64) string {
	text := fmt.Sprintf("%+.1f", v)
	switch {
	case v > 0:
		return p.paint(color.FgGreen).Sprint(text)
	case v < 0:
		return p.paint(color.FgRed).Sprint(text)
	default:
		return text
	}
}

// Action returns the low stock label, URGENT in red.
func (p *Printer) Action(urgent bool) string {
	if urgent {
		return p.paint(color.FgRed, color.Bold).Sprint("URGENT")
	}
	return p.paint(color.FgYellow).Sprint("REORDER")
}

// Bold returns text in bold
func (p *Printer) Bold(text string) string {
	return p.paint(color.Bold).Sprint(text)
}

// Dim returns dimmed text
func (p *Printer) Dim(text string) string {
	return p.paint(color.Faint).Sprint(text)
}

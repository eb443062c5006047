package report

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	colorAccent = lipgloss.Color("12")
	colorMuted  = lipgloss.Color("8")
	colorWarn   = lipgloss.Color("11")
	colorPass   = lipgloss.Color("10")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// IsTerminal reports whether stdout is a TTY, for callers deciding whether
// to render Markdown through glamour or print it plain.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR / CLICOLOR conventions, falling back
// to TTY detection.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return IsTerminal()
}

// RenderANSI converts Markdown to ANSI-styled terminal output via glamour,
// falling back to the raw Markdown on render failure or when color is
// disabled.
func RenderANSI(markdown string, width int) string {
	if !ShouldUseColor() {
		return markdown
	}
	if width <= 0 {
		width = 100
	}
	profile := termenv.ColorProfile()
	style := "dark"
	if profile == termenv.Ascii {
		return markdown
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// Header styles a short label line.
func Header(s string) string { return headerStyle.Render(s) }

// Muted styles secondary/hint text.
func Muted(s string) string { return mutedStyle.Render(s) }

// WarnColor and PassColor expose the palette for callers building their own
// lipgloss styles.
func WarnColor() lipgloss.Color { return colorWarn }
func PassColor() lipgloss.Color { return colorPass }

package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Success prints "✓ message".
func Success(w io.Writer, format string, args ...interface{}) {
	statusLine(w, SymbolSuccess, ColorSuccess, format, args...)
}

// Warning prints "! message".
func Warning(w io.Writer, format string, args ...interface{}) {
	statusLine(w, SymbolWarning, ColorWarning, format, args...)
}

// Failure prints "✗ message".
func Failure(w io.Writer, format string, args ...interface{}) {
	statusLine(w, SymbolFail, ColorError, format, args...)
}

// Muted renders secondary text.
func Muted(s string) string {
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(s)
}

func statusLine(w io.Writer, symbol string, color lipgloss.Color, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", lipgloss.NewStyle().Foreground(color).Render(symbol), fmt.Sprintf(format, args...))
}

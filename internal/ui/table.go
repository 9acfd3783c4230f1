package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
// A zero Width sizes the column to its widest cell.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		width := c.Width
		if width == 0 {
			width = columnWidth(c.Title, i, rows)
		}
		cols[i] = table.Column{Title: c.Title, Width: width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Unfocused tables still highlight the cursor row; keep it plain.
	s.Selected = lipgloss.NewStyle()

	t.SetStyles(s)
	return t
}

// RenderTable renders a non-interactive table string for CLI output.
// Returns empty if there are no rows.
func RenderTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	return strings.TrimRight(NewTable(columns, tableRows).View(), " \n") + "\n"
}

func columnWidth(title string, col int, rows []table.Row) int {
	w := lipgloss.Width(title)
	for _, r := range rows {
		if col < len(r) {
			if cw := lipgloss.Width(r[col]); cw > w {
				w = cw
			}
		}
	}
	return w + 1
}

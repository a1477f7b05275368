package utils

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of cells with box-drawing borders
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given column headers
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow appends a row. Rows with the wrong number of cells are ignored.
func (t *Table) AddRow(cells ...string) *Table {
	if len(cells) != len(t.headers) {
		return t
	}
	t.rows = append(t.rows, cells)
	for i, cell := range cells {
		if w := lipgloss.Width(cell); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	return t
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// String returns the rendered table
func (t *Table) String() string {
	var sb strings.Builder

	t.border(&sb, "┌", "┬", "┐")
	t.row(&sb, t.headers)
	t.border(&sb, "├", "┼", "┤")
	for _, row := range t.rows {
		t.row(&sb, row)
	}
	t.border(&sb, "└", "┴", "┘")

	return sb.String()
}

func (t *Table) row(sb *strings.Builder, cells []string) {
	sb.WriteString("│")
	for i, cell := range cells {
		sb.WriteString(" ")
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", t.widths[i]-lipgloss.Width(cell)))
		sb.WriteString(" │")
	}
	sb.WriteString("\n")
}

func (t *Table) border(sb *strings.Builder, left, middle, right string) {
	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+2))
		if i < len(t.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right)
	sb.WriteString("\n")
}

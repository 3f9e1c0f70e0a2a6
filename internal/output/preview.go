package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/inodb/gwconvert/internal/tabular"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8C42")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// PreviewWriter renders rows as an aligned text table.
type PreviewWriter struct {
	w io.Writer
}

// NewPreviewWriter creates a PreviewWriter writing to w.
func NewPreviewWriter(w io.Writer) *PreviewWriter {
	return &PreviewWriter{w: w}
}

// WriteRecords renders records under headers. Missing fields render empty.
func (pw *PreviewWriter) WriteRecords(headers []string, records []tabular.Record) error {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = rec.Value(h)
		}
		rows[i] = row
	}
	return pw.WriteTable(headers, rows)
}

// WriteTable renders a header row followed by rows.
func (pw *PreviewWriter) WriteTable(headers []string, rows [][]string) error {
	_, err := fmt.Fprintln(pw.w, Table(headers, rows))
	return err
}

// Table renders headers and rows with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

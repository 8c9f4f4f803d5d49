package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Theme defines the colors used for table output.
type Theme struct {
	Primary lipgloss.Color // borders and headers
	Dim     lipgloss.Color // secondary text
	Real    lipgloss.Color
	Fake    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Real:    lipgloss.Color("#3fb950"),
	Fake:    lipgloss.Color("#f85149"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style
	Real   lipgloss.Style
	Fake   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return Styles{
		Header: cell.Bold(true).Foreground(t.Primary),
		Cell:   cell,
		Border: lipgloss.NewStyle().Foreground(t.Dim),
		Real:   cell.Bold(true).Foreground(t.Real),
		Fake:   cell.Bold(true).Foreground(t.Fake),
	}
}

// Table is plain tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabler is implemented by values with a table rendering.
type Tabler interface {
	Table() Table
}

// Render draws the table with rounded borders. Cells whose text is exactly
// REAL or FAKE get the label styles.
func (t Table) Render(s Styles) string {
	rows := t.Rows
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		Headers(t.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if row >= 0 && row < len(rows) && col < len(rows[row]) {
				switch rows[row][col] {
				case "REAL":
					return s.Real
				case "FAKE":
					return s.Fake
				}
			}
			return s.Cell
		}).
		String()
}

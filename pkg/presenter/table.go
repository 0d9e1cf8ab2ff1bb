package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#7aa2f7", Dark: "#7aa2f7"})
	tableBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#565f89", Dark: "#565f89"})
)

// Table displays tabular data with a styled header row. Column widths
// are sized to the widest cell in each column.
func (p *TerminalPresenter) Table(headers []string, rows [][]string) {
	if p.quiet || len(headers) == 0 {
		return
	}
	fmt.Fprint(p.output, RenderTable(headers, rows))
}

// RenderTable formats headers and rows as an aligned text table and
// returns it with a trailing newline.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(renderRow(headers, widths, tableHeaderStyle))
	sb.WriteString(tableBorderStyle.Render(separatorLine(widths)))
	sb.WriteString("\n")
	plain := lipgloss.NewStyle()
	for _, row := range rows {
		sb.WriteString(renderRow(row, widths, plain))
	}
	return sb.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	padded := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = style.Render(cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ") + "\n"
}

func separatorLine(widths []int) string {
	segments := make([]string, len(widths))
	for i, w := range widths {
		segments[i] = strings.Repeat("-", w)
	}
	return strings.Join(segments, "  ")
}

// Table displays tabular data using the default presenter instance.
func Table(headers []string, rows [][]string) {
	defaultPresenter.Table(headers, rows)
}

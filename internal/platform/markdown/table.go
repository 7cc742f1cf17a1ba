package markdown

import "strings"

// Table renders a GitHub-style pipe table. Pipes inside cells are escaped.
func Table(headers []string, rows [][]string) string {
	var b strings.Builder
	writeRow(&b, headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		writeRow(&b, cells)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, cell := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(cell, "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

package dataset

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// SampleTable renders the first n rows as a fixed-width text table with a
// leading row index, right-aligned like a dataframe preview.
func (d *Dataset) SampleTable(n int) string {
	if n <= 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	cells := make([][]string, 0, n+1)
	head := append([]string{""}, d.Columns...)
	cells = append(cells, head)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(d.Columns)+1)
		row = append(row, strconv.Itoa(i))
		for _, v := range d.Rows[i] {
			row = append(row, strings.ReplaceAll(strings.TrimSpace(v), "\n", " "))
		}
		cells = append(cells, row)
	}
	widths := make([]int, len(head))
	for _, r := range cells {
		for j, v := range r {
			if w := utf8.RuneCountInString(v); w > widths[j] {
				widths[j] = w
			}
		}
	}
	var b strings.Builder
	for i, r := range cells {
		for j, v := range r {
			if j > 0 {
				b.WriteString("  ")
			}
			b.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(v)))
			b.WriteString(v)
		}
		if i < len(cells)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ColumnList renders column names the way they appear in a Python list.
func (d *Dataset) ColumnList() string {
	quoted := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		quoted[i] = "'" + strings.ReplaceAll(c, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

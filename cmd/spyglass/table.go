package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one output column. Numeric columns right-align so
// view counts, rates, and scores line up under their headers.
type column struct {
	name    string
	numeric bool
}

func col(name string) column    { return column{name: name} }
func numCol(name string) column { return column{name: name, numeric: true} }

// countCell renders a count with thousands grouping; raw view counts
// in the millions are unreadable without it.
func countCell(n int64) string {
	return humanize.Comma(n)
}

// rateCell renders a growth rate or centrality score at a fixed width.
func rateCell(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.name
		align := text.AlignLeft
		if c.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}

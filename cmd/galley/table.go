package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// writeTable prints rows under the given headers. Alignments apply per column
// in order; columns without one are left-aligned.
func writeTable(w io.Writer, headers []string, rows [][]string, aligns ...columnAlignment) {
	width := len(headers)
	if width == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(paddedRow(headers, width))
	for _, cells := range rows {
		tw.AppendRow(paddedRow(cells, width))
	}

	configs := make([]table.ColumnConfig, width)
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	fmt.Fprintln(w, tw.Render())
}

// paddedRow widens cells to the header width so short rows keep their columns.
func paddedRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		row[i] = cell
	}
	return row
}

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// bookTable renders the CLI's tabular views. Numeric columns (sizes, counts,
// durations) are right-aligned by header name so values line up; headers and
// everything else stay left-aligned.
type bookTable struct {
	headers []string
	rows    []table.Row
}

var numericColumns = map[string]bool{
	"Jobs":     true,
	"Size":     true,
	"Attempts": true,
	"Duration": true,
}

func newBookTable(headers ...string) *bookTable {
	return &bookTable{headers: headers}
}

func (t *bookTable) addRow(cells ...string) {
	row := make(table.Row, len(t.headers))
	for i := range t.headers {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	t.rows = append(t.rows, row)
}

func (t *bookTable) render() string {
	if len(t.headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(t.headers))
	configs := make([]table.ColumnConfig, 0, len(t.headers))
	for i, name := range t.headers {
		header[i] = name
		align := text.AlignLeft
		if numericColumns[name] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range t.rows {
		tw.AppendRow(row)
	}
	return tw.Render()
}

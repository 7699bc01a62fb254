package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func optional[T any](v *T) any {
	if v == nil {
		return ""
	}
	return *v
}

func recordCells(r cars.Record) table.Row {
	return table.Row{
		optional(r.Year),
		optional(r.MakeModel),
		optional(r.Horsepower),
		optional(r.TopSpeedKmh),
		optional(r.EngineDisplacementL),
		optional(r.EngineType),
	}
}

func columnHeader() table.Row {
	header := table.Row{}
	for _, c := range cars.Columns {
		header = append(header, c)
	}
	return header
}

// newTable keeps column names as they are stored, StyleRounded would upper case them.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func renderRecords(out io.Writer, records []cars.Record) {
	t := newTable(out)
	t.AppendHeader(append(table.Row{"#"}, columnHeader()...))
	for i, r := range records {
		t.AppendRow(append(table.Row{i + 1}, recordCells(r)...))
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d records", len(records))})
	t.Render()
}

func renderRows(out io.Writer, rows []store.Row) {
	t := newTable(out)
	t.AppendHeader(append(table.Row{"scraped_at"}, columnHeader()...))
	for _, r := range rows {
		t.AppendRow(append(table.Row{r.ScrapedAt.Local().Format(time.DateTime)}, recordCells(r.Record)...))
	}
	t.Render()
}

func printRecords(records []cars.Record) {
	renderRecords(os.Stdout, records)
}

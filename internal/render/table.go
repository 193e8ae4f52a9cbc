package render

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/kustomcp/kustomcp/internal/core/domain"
)

// TableRenderer produces a fixed-width-aligned text block followed by a
// human-readable metadata summary.
type TableRenderer struct{}

func (TableRenderer) Render(columns []domain.Column, rows []domain.Row, meta Metadata, cfg Config) string {
	var b strings.Builder

	if len(rows) == 0 {
		b.WriteString("(no rows)\n")
	} else {
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

		names := make([]string, len(columns))
		underlines := make([]string, len(columns))
		for i, col := range columns {
			names[i] = col.Name
			underlines[i] = strings.Repeat("-", len(col.Name))
		}
		fmt.Fprintln(w, strings.Join(names, "\t"))
		fmt.Fprintln(w, strings.Join(underlines, "\t"))

		cells := make([]string, len(columns))
		for _, row := range rows {
			for i, col := range columns {
				cells[i] = cellText(row[col.Name], cfg.MaxCellWidth)
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		w.Flush()
	}

	b.WriteString("\n")
	b.WriteString(summarize(meta))
	return b.String()
}

func summarize(meta Metadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d row(s)", meta.RowCount)
	if meta.IsPartial {
		fmt.Fprintf(&b, " of %d available", meta.OriginalRowsAvailable)
	}
	b.WriteString("\n")

	if meta.ReducedForResponseSize {
		fmt.Fprintf(&b, "Output reduced to fit the %d character response limit.\n", meta.GlobalCharLimit)
	}
	if meta.HasMoreResults {
		b.WriteString("More results are available; narrow the query or raise the limit to see them.\n")
	}
	return b.String()
}

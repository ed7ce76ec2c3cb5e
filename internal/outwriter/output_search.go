package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"github.com/olekukonko/tablewriter/tw"
)

func writeSplitTable(w io.Writer, subs []schema.SubQuery, cfg *contract.Config) error {
	table := newTable(w, []string{"Backend", "Window", "Filter"}, tw.AlignLeft)
	width := GetMaxCellWidth(cfg, 3)
	var data [][]string
	for _, sub := range subs {
		data = append(data, []string{
			sub.Backend.String(),
			formatWindow(sub.Window),
			contract.TruncateText(sub.Query.Expression.String(), width),
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Split into %d sub-queries\n", len(subs))
	return err
}

func writeCSVSplit(w io.Writer, subs []schema.SubQuery) error {
	header := []string{"backend", "window_from", "window_to", "filter"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, sub := range subs {
			row := []string{
				sub.Backend.String(),
				strconv.FormatInt(sub.Window.From, 10),
				strconv.FormatInt(sub.Window.To, 10),
				sub.Query.Expression.String(),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeResultsTable(w io.Writer, rs *schema.ResultSet, cfg *contract.Config, duration time.Duration) error {
	table := newTable(w, rs.Fields, tw.AlignLeft)
	width := GetMaxCellWidth(cfg, len(rs.Fields))
	data := make([][]string, 0, rs.Len())
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = contract.TruncateText(v, width)
		}
		data = append(data, cells)
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Found %d rows in %v\n", rs.Len(), duration.Round(time.Millisecond))
	return err
}

func writeCSVResults(w io.Writer, rs *schema.ResultSet) error {
	return writeCSVWithHeader(w, rs.Fields, func(cw *csv.Writer) error {
		return cw.WriteAll(rs.Rows)
	})
}

// formatSeconds renders a second count as a duration, or "-" for zero.
func formatSeconds(secs int64) string {
	if secs == 0 {
		return "-"
	}
	return (time.Duration(secs) * time.Second).String()
}

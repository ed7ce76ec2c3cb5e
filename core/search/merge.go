package search

import (
	"sort"

	"github.com/huangsam/autoindex/internal/backend/filter"
	"github.com/huangsam/autoindex/schema"
)

// MergeResponses unions sub-query responses into one result.
// Fields are aligned by name, rows are ordered by the time field ascending,
// and the page and projection of req are applied last. req may be nil.
func MergeResponses(responses []*schema.ResultSet, timeField string, req *schema.ResultRequest) *schema.ResultSet {
	b := filter.NewBuilder()
	for _, rs := range responses {
		if rs == nil {
			continue
		}
		b.AddFields(rs.Fields...)
		for _, row := range rs.Rows {
			b.Add(rs.Fields, row)
		}
	}
	merged := b.Result()

	if col := merged.Index(timeField); col >= 0 {
		sort.SliceStable(merged.Rows, func(i, j int) bool {
			return timeLess(merged.Rows[i][col], merged.Rows[j][col])
		})
	}
	if req == nil {
		return merged
	}
	merged.Rows = page(merged.Rows, req.Offset, req.Length)
	if len(req.Fields) > 0 {
		merged = project(merged, req.Fields)
	}
	return merged
}

// timeLess orders numeric or RFC3339 values by time and puts unparsable values last.
func timeLess(a, b string) bool {
	x, okA := filter.Number(a)
	y, okB := filter.Number(b)
	switch {
	case okA && okB:
		return x < y
	case okA != okB:
		return okA
	}
	return a < b
}

func page(rows [][]string, offset, length int) [][]string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return [][]string{}
	}
	rows = rows[offset:]
	if length > 0 && length < len(rows) {
		rows = rows[:length]
	}
	return rows
}

func project(rs *schema.ResultSet, fields []string) *schema.ResultSet {
	cols := make([]int, len(fields))
	for i, f := range fields {
		cols[i] = rs.Index(f)
	}
	out := &schema.ResultSet{Fields: fields, Rows: make([][]string, len(rs.Rows))}
	for i, row := range rs.Rows {
		projected := make([]string, len(cols))
		for j, c := range cols {
			if c >= 0 {
				projected[j] = row[c]
			}
		}
		out.Rows[i] = projected
	}
	return out
}

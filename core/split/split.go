// Package split turns one federated query into sub-queries bound to covered
// windows on the indexed backend and uncovered windows on the raw backend.
package split

import (
	"github.com/huangsam/autoindex/core/timeline"
	"github.com/huangsam/autoindex/schema"
)

// Split builds one sub-query per window of the tracker snapshot.
// Covered windows go to indexed, the complement goes to raw.
// A tracker without bounds has no complement, so raw gets nothing.
func Split(q schema.Query, t *schema.Tracker, raw, indexed schema.BackendRef, timeField string) schema.SplitQuery {
	out := schema.SplitQuery{}

	if len(t.Windows) > 0 {
		out[indexed] = bindWindows(q, t.Windows, indexed, timeField)
	}

	inverted, err := timeline.Invert(t)
	if err != nil {
		return out
	}
	if len(inverted.Windows) > 0 {
		out[raw] = bindWindows(q, inverted.Windows, raw, timeField)
	}
	return out
}

// ForSource splits q using the backends and time field configured on the source.
func ForSource(q schema.Query, t *schema.Tracker, source schema.TrackedSource) schema.SplitQuery {
	return Split(q, t, source.Raw, source.Indexed, source.TimeField)
}

func bindWindows(q schema.Query, windows []schema.Window, ref schema.BackendRef, timeField string) map[schema.Window]schema.Query {
	byWindow := make(map[schema.Window]schema.Query, len(windows))
	for _, w := range windows {
		byWindow[w] = WithTimeBound(q, w, ref, timeField)
	}
	return byWindow
}

// WithTimeBound copies q, points it at ref and ANDs its filter with
// timeField BETWEEN w.From,w.To.
func WithTimeBound(q schema.Query, w schema.Window, ref schema.BackendRef, timeField string) schema.Query {
	sub := q.Clone()
	sub.DataSource = ref
	bound := schema.BetweenTerm(timeField, w)
	if sub.Expression.IsEmpty() {
		sub.Expression = schema.And(bound)
	} else {
		sub.Expression = schema.And(sub.Expression, bound)
	}
	return sub
}

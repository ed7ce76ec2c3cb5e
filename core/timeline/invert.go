package timeline

import (
	"fmt"

	"github.com/huangsam/autoindex/schema"
)

// Invert returns a tracker with the same id and bounds whose windows are the
// parts of bounds not covered by t.
func Invert(t *schema.Tracker) (*schema.Tracker, error) {
	if t.Bounds == nil {
		return nil, fmt.Errorf("invert %s: %w", t.SourceID, schema.ErrMissingBounds)
	}
	bounds := *t.Bounds

	sorted := make([]schema.Window, len(t.Windows))
	copy(sorted, t.Windows)
	SortWindows(sorted)

	out := &schema.Tracker{SourceID: t.SourceID, Bounds: &bounds, Windows: []schema.Window{}}
	cursor := bounds.From
	for _, w := range sorted {
		if w.From >= bounds.To {
			break
		}
		if cursor < w.From {
			out.Windows = append(out.Windows, schema.Window{From: cursor, To: w.From})
		}
		cursor = max(cursor, w.To)
	}
	if cursor < bounds.To {
		out.Windows = append(out.Windows, schema.Window{From: cursor, To: bounds.To})
	}
	return out, nil
}

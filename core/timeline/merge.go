// Package timeline holds the pure interval algorithms behind coverage tracking:
// merging, gap selection and inversion. Nothing here touches storage.
package timeline

import (
	"sort"

	"github.com/huangsam/autoindex/schema"
)

// Merge folds w into the existing disjoint windows.
// It returns the window to insert and the windows it replaces.
// A nil survivor means w is already covered and nothing changes.
// Touching windows merge into one.
func Merge(w schema.Window, existing []schema.Window) (*schema.Window, []schema.Window) {
	merged := w
	var toDelete []schema.Window

	for _, e := range existing {
		switch {
		case e.To < merged.From || e.From > merged.To:
			// no overlap
		case e.From <= merged.From && e.To >= merged.To:
			// subsumed, which includes an exact duplicate
			return nil, nil
		case merged.From <= e.From && e.To <= merged.To:
			toDelete = append(toDelete, e)
		case e.From < merged.From:
			toDelete = append(toDelete, e)
			merged.From = e.From
		default:
			toDelete = append(toDelete, e)
			merged.To = e.To
		}
	}
	return &merged, toDelete
}

// Change is the set of mutations adding a window applies to a tracker.
type Change struct {
	Insert *schema.Window
	Delete []schema.Window
	Bounds *schema.Window // nil when the bounds stay as they are
}

// Empty reports whether the change is a no-op.
func (c Change) Empty() bool {
	return c.Insert == nil && len(c.Delete) == 0 && c.Bounds == nil
}

// PlanAddWindow computes what adding w to the tracker would change.
// Bounds only grow on the edge the merged window passes.
func PlanAddWindow(t *schema.Tracker, w schema.Window) Change {
	survivor, toDelete := Merge(w, t.Windows)
	change := Change{Insert: survivor, Delete: toDelete}
	if survivor == nil {
		return change
	}

	if t.Bounds == nil {
		b := *survivor
		change.Bounds = &b
		return change
	}

	b := *t.Bounds
	widened := false
	if survivor.From < b.From {
		b.From = survivor.From
		widened = true
	}
	if survivor.To > b.To {
		b.To = survivor.To
		widened = true
	}
	if widened {
		change.Bounds = &b
	}
	return change
}

// Apply performs the change on t in place and keeps windows sorted.
func (c Change) Apply(t *schema.Tracker) {
	if len(c.Delete) > 0 {
		drop := make(map[schema.Window]struct{}, len(c.Delete))
		for _, d := range c.Delete {
			drop[d] = struct{}{}
		}
		kept := t.Windows[:0]
		for _, w := range t.Windows {
			if _, ok := drop[w]; !ok {
				kept = append(kept, w)
			}
		}
		t.Windows = kept
	}
	if c.Insert != nil {
		t.Windows = append(t.Windows, *c.Insert)
		SortWindows(t.Windows)
	}
	if c.Bounds != nil {
		b := *c.Bounds
		t.Bounds = &b
	}
}

// AddWindow returns a copy of t with w merged in.
func AddWindow(t *schema.Tracker, w schema.Window) *schema.Tracker {
	next := t.Clone()
	PlanAddWindow(next, w).Apply(next)
	return next
}

// SortWindows orders windows ascending by From.
func SortWindows(windows []schema.Window) {
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].From < windows[j].From
	})
}

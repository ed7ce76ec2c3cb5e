package timeline

import (
	"sort"

	"github.com/huangsam/autoindex/schema"
)

// SuggestNextWindow proposes the next uncovered window, searching backward
// from the upper edge of bounds in steps aligned to size.
// It returns false once everything between bounds.From and the aligned
// upper edge is covered.
func SuggestNextWindow(bounds schema.Window, size int64, existing []schema.Window) (schema.Window, bool) {
	if size <= 0 {
		return schema.Window{}, false
	}

	desc := make([]schema.Window, len(existing))
	copy(desc, existing)
	sort.Slice(desc, func(i, j int) bool {
		return desc[i].From > desc[j].From
	})

	top := bounds.To - floorMod(bounds.To, size)
	for _, e := range desc {
		if top <= bounds.From {
			return schema.Window{}, false
		}
		if e.To >= top {
			top = min(top, e.From)
			continue
		}
		return proposal(bounds, max(goBackOneEpoch(top, size), e.To), top)
	}
	if top <= bounds.From {
		return schema.Window{}, false
	}
	return proposal(bounds, goBackOneEpoch(top, size), top)
}

// SuggestNextWindows returns up to n windows, folding each proposal into the
// existing list before asking for the next one.
func SuggestNextWindows(bounds schema.Window, size int64, existing []schema.Window, n int) []schema.Window {
	working := make([]schema.Window, len(existing), len(existing)+n)
	copy(working, existing)

	var out []schema.Window
	for range n {
		w, ok := SuggestNextWindow(bounds, size, working)
		if !ok {
			break
		}
		out = append(out, w)
		working = append(working, w)
	}
	return out
}

// proposal clamps the lower edge to bounds so nothing before the timeline is requested.
func proposal(bounds schema.Window, from, to int64) (schema.Window, bool) {
	from = max(from, bounds.From)
	if to <= from {
		return schema.Window{}, false
	}
	return schema.Window{From: from, To: to}, true
}

// goBackOneEpoch steps to the previous aligned boundary below top.
func goBackOneEpoch(top, size int64) int64 {
	if rem := floorMod(top, size); rem != 0 {
		return top - rem
	}
	return top - size
}

func floorMod(a, b int64) int64 {
	return ((a % b) + b) % b
}

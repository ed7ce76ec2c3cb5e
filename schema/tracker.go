package schema

// Tracker is the coverage state of one tracked source.
// Windows are kept sorted by From, pairwise disjoint and non-adjacent.
type Tracker struct {
	SourceID string   `json:"source_id"`
	Bounds   *Window  `json:"bounds,omitempty"`
	Windows  []Window `json:"windows"`
}

// NewTracker returns an empty tracker for the source.
func NewTracker(sourceID string) *Tracker {
	return &Tracker{SourceID: sourceID, Windows: []Window{}}
}

// Clone returns a deep copy of the tracker.
func (t *Tracker) Clone() *Tracker {
	clone := &Tracker{SourceID: t.SourceID, Windows: make([]Window, len(t.Windows))}
	copy(clone.Windows, t.Windows)
	if t.Bounds != nil {
		b := *t.Bounds
		clone.Bounds = &b
	}
	return clone
}

// CoveredSeconds sums the duration of all windows.
func (t *Tracker) CoveredSeconds() int64 {
	var total int64
	for _, w := range t.Windows {
		total += w.Duration()
	}
	return total
}

// CoveragePercent returns covered seconds as a percentage of the bounds.
// It is zero when bounds are not set.
func (t *Tracker) CoveragePercent() float64 {
	if t.Bounds == nil || t.Bounds.Duration() <= 0 {
		return 0
	}
	return float64(t.CoveredSeconds()) / float64(t.Bounds.Duration()) * 100
}

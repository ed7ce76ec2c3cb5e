package schema

// StoreStatus represents the status of the tracker and job store.
type StoreStatus struct {
	Backend      string           `json:"backend"`
	Connected    bool             `json:"connected"`
	TotalSources int              `json:"total_sources"`
	TotalWindows int              `json:"total_windows"`
	OpenJobs     int              `json:"open_jobs"`
	RunningJobs  int              `json:"running_jobs"`
	TableSizes   map[string]int64 `json:"table_sizes"`
}

// CoverageStatus summarizes migration progress for one tracked source.
type CoverageStatus struct {
	SourceID       string    `json:"source_id"`
	Enabled        bool      `json:"enabled"`
	Bounds         *Window   `json:"bounds,omitempty"`
	Windows        int       `json:"windows"`
	CoveredSeconds int64     `json:"covered_seconds"`
	Percent        float64   `json:"percent"`
	Job            *IndexJob `json:"job,omitempty"`
}

// NewCoverageStatus derives a coverage summary from a tracker snapshot.
func NewCoverageStatus(source TrackedSource, tracker *Tracker, job *IndexJob) CoverageStatus {
	return CoverageStatus{
		SourceID:       source.ID,
		Enabled:        source.Enabled,
		Bounds:         tracker.Bounds,
		Windows:        len(tracker.Windows),
		CoveredSeconds: tracker.CoveredSeconds(),
		Percent:        tracker.CoveragePercent(),
		Job:            job,
	}
}

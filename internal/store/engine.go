package store

import (
	"context"

	"github.com/huangsam/autoindex/schema"
)

// Table names shared by every engine. Bolt uses them as bucket names.
const (
	windowsTable = "tracker_windows"
	boundsTable  = "timeline_bounds"
	jobsTable    = "index_jobs"
	sourcesTable = "tracked_sources"
	locksTable   = "source_locks"
)

var allTables = []string{windowsTable, boundsTable, jobsTable, sourcesTable}

// engine is a transactional persistence layer for trackers, jobs and sources.
type engine interface {
	backend() schema.DatabaseBackend

	// update runs fn in a read-write transaction that holds the lock of sourceID.
	// Returning an error from fn rolls everything back.
	update(ctx context.Context, sourceID string, fn func(tx) error) error

	// view runs fn in a read-only transaction.
	view(ctx context.Context, fn func(tx) error) error

	// tableSizes returns the number of rows (or keys) per table.
	tableSizes(ctx context.Context) (map[string]int64, error)

	close() error
}

// tx is the set of primitives the Service composes into atomic operations.
// Lookups of a single missing row return schema.ErrJobNotFound or schema.ErrSourceNotFound.
type tx interface {
	loadTracker(sourceID string) (*schema.Tracker, error)
	insertWindow(sourceID string, w schema.Window) error
	deleteWindows(sourceID string, ws []schema.Window) error
	clearWindows(sourceID string) error
	putBounds(sourceID string, b schema.Window) error

	jobBySource(sourceID string) (*schema.IndexJob, error) // nil when the source has no open job
	job(jobID string) (*schema.IndexJob, error)
	listJobs() ([]schema.IndexJob, error)
	insertJob(j schema.IndexJob) error
	setJobStarted(jobID string, startedAt int64) error
	deleteJob(jobID string) error

	listSources() ([]schema.TrackedSource, error)
	source(id string) (schema.TrackedSource, error)
	putSource(s schema.TrackedSource) error
	deleteSource(id string) error
}

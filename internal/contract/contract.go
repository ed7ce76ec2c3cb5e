// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/autoindex/schema"
)

// TrackerStore persists the coverage state of each tracked source.
// Mutations are atomic and serialized per source id.
type TrackerStore interface {
	// GetTracker returns the tracker for the source, or an empty one if none exists.
	GetTracker(ctx context.Context, sourceID string) (*schema.Tracker, error)

	// AddWindow merges w into the source's windows and widens bounds when w passes them.
	AddWindow(ctx context.Context, sourceID string, w schema.Window) (*schema.Tracker, error)

	// SetBounds overwrites the outer range of the source's timeline.
	SetBounds(ctx context.Context, sourceID string, bounds schema.Window) (*schema.Tracker, error)

	// ClearWindows removes all covered windows and keeps the bounds.
	ClearWindows(ctx context.Context, sourceID string) (*schema.Tracker, error)
}

// JobStore owns the lifecycle of index jobs. There is at most one open job per source.
type JobStore interface {
	// GetOrCreate returns the open job of the source or creates one for the next
	// uncovered window. It returns nil when the timeline is exhausted.
	GetOrCreate(ctx context.Context, source schema.TrackedSource) (*schema.IndexJob, error)

	// GetJob returns an open job by id.
	GetJob(ctx context.Context, jobID string) (*schema.IndexJob, error)

	// ListJobs returns every open job.
	ListJobs(ctx context.Context) ([]schema.IndexJob, error)

	// MarkAsStarted stamps the job as picked up by a pipeline.
	MarkAsStarted(ctx context.Context, jobID string) (*schema.IndexJob, error)

	// MarkAsFailed resets a started job to pending so a later tick retries it.
	MarkAsFailed(ctx context.Context, jobID string) (*schema.IndexJob, error)

	// MarkAsComplete removes the job and merges its window into the tracker.
	MarkAsComplete(ctx context.Context, jobID string) (*schema.Tracker, error)
}

// SourceRegistry lists the tracked sources the scheduler works on.
type SourceRegistry interface {
	ListSources(ctx context.Context) ([]schema.TrackedSource, error)
	ListEnabled(ctx context.Context) ([]schema.TrackedSource, error)
	GetSource(ctx context.Context, id string) (schema.TrackedSource, error)
	PutSource(ctx context.Context, source schema.TrackedSource) error
	DeleteSource(ctx context.Context, id string) error
}

// Store bundles trackers, jobs and the source registry on one persistence backend.
type Store interface {
	TrackerStore
	JobStore
	SourceRegistry
	GetStatus(ctx context.Context) (schema.StoreStatus, error)
	Close() error
}

// QueryService executes queries against one kind of data store.
type QueryService interface {
	// GetSchema returns the fields of the referenced data set.
	GetSchema(ctx context.Context, ref schema.BackendRef) (schema.DataSchema, error)

	// Execute runs q against q.DataSource. Unknown data sets yield schema.ErrSourceNotFound.
	Execute(ctx context.Context, q schema.Query) (*schema.ResultSet, error)
}

// WriteService stores rows into one kind of data store.
type WriteService interface {
	// BulkWrite stores rows into target. A result with failures is a partial write.
	BulkWrite(ctx context.Context, target schema.BackendRef, rows *schema.ResultSet) (schema.WriteResult, error)
}

// BackendProvider resolves the services registered for a backend type.
type BackendProvider interface {
	QueryService(typ schema.BackendType) (QueryService, error)
	WriteService(typ schema.BackendType) (WriteService, error)
}

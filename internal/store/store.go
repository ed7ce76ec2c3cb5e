// Package store persists timeline trackers, index jobs and tracked sources.
// One Service implements contract.Store on top of a pluggable engine
// (SQL, bbolt or in-memory) and serializes every mutation per source id.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/autoindex/core/timeline"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
)

// Service implements contract.Store.
type Service struct {
	eng   engine
	locks *keyLock
	now   func() time.Time
	newID func() string
	log   contract.Logger
}

var _ contract.Store = &Service{} // Compile-time check

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for job lifecycle messages.
func WithLogger(log contract.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithIDGenerator replaces the random job id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func newService(eng engine, opts ...Option) *Service {
	s := &Service{
		eng:   eng,
		locks: newKeyLock(),
		now:   time.Now,
		newID: uuid.NewString,
		log:   contract.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// update serializes fn against every other mutation of sourceID in this process.
// The engine adds its own cross-process guard where the backend supports one.
func (s *Service) update(ctx context.Context, sourceID string, fn func(tx) error) error {
	unlock := s.locks.lock(sourceID)
	defer unlock()
	return s.eng.update(ctx, sourceID, fn)
}

// GetTracker implements contract.TrackerStore.
func (s *Service) GetTracker(ctx context.Context, sourceID string) (*schema.Tracker, error) {
	var t *schema.Tracker
	err := s.eng.view(ctx, func(tx tx) error {
		var err error
		t, err = tx.loadTracker(sourceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load tracker %s: %w", sourceID, err)
	}
	return t, nil
}

// AddWindow implements contract.TrackerStore.
func (s *Service) AddWindow(ctx context.Context, sourceID string, w schema.Window) (*schema.Tracker, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("add window %s: %w", w, schema.ErrInvalidWindow)
	}
	var out *schema.Tracker
	err := s.update(ctx, sourceID, func(tx tx) error {
		t, err := tx.loadTracker(sourceID)
		if err != nil {
			return err
		}
		out, err = addWindowTx(tx, t, w)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add window %s to %s: %w", w, sourceID, err)
	}
	return out, nil
}

// addWindowTx persists the change of merging w into t and returns the new tracker.
func addWindowTx(tx tx, t *schema.Tracker, w schema.Window) (*schema.Tracker, error) {
	change := timeline.PlanAddWindow(t, w)
	if change.Empty() {
		return t, nil
	}
	if err := tx.deleteWindows(t.SourceID, change.Delete); err != nil {
		return nil, err
	}
	if change.Insert != nil {
		if err := tx.insertWindow(t.SourceID, *change.Insert); err != nil {
			return nil, err
		}
	}
	if change.Bounds != nil {
		if err := tx.putBounds(t.SourceID, *change.Bounds); err != nil {
			return nil, err
		}
	}
	change.Apply(t)
	return t, nil
}

// SetBounds implements contract.TrackerStore.
func (s *Service) SetBounds(ctx context.Context, sourceID string, bounds schema.Window) (*schema.Tracker, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("set bounds %s: %w", bounds, schema.ErrInvalidWindow)
	}
	var out *schema.Tracker
	err := s.update(ctx, sourceID, func(tx tx) error {
		if err := tx.putBounds(sourceID, bounds); err != nil {
			return err
		}
		var err error
		out, err = tx.loadTracker(sourceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set bounds of %s: %w", sourceID, err)
	}
	return out, nil
}

// ClearWindows implements contract.TrackerStore.
func (s *Service) ClearWindows(ctx context.Context, sourceID string) (*schema.Tracker, error) {
	var out *schema.Tracker
	err := s.update(ctx, sourceID, func(tx tx) error {
		if err := tx.clearWindows(sourceID); err != nil {
			return err
		}
		var err error
		out, err = tx.loadTracker(sourceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("clear windows of %s: %w", sourceID, err)
	}
	return out, nil
}

// GetOrCreate implements contract.JobStore.
// An existing open job is returned untouched. Otherwise the next window is
// selected from the tracker, seeding bounds from the source lookback if needed.
func (s *Service) GetOrCreate(ctx context.Context, source schema.TrackedSource) (*schema.IndexJob, error) {
	var out *schema.IndexJob
	err := s.update(ctx, source.ID, func(tx tx) error {
		existing, err := tx.jobBySource(source.ID)
		if err != nil || existing != nil {
			out = existing
			return err
		}

		t, err := tx.loadTracker(source.ID)
		if err != nil {
			return err
		}
		if t.Bounds == nil {
			if source.Lookback <= 0 {
				return nil
			}
			now := s.now().Unix()
			seed := schema.Window{From: now - source.Lookback, To: now}
			if err := tx.putBounds(source.ID, seed); err != nil {
				return err
			}
			t.Bounds = &seed
			s.log.Info("seeded tracker bounds", "source", source.ID, "bounds", seed.String())
		}

		w, ok := timeline.SuggestNextWindow(*t.Bounds, source.WindowSize, t.Windows)
		if !ok {
			return nil
		}
		job := schema.IndexJob{
			JobID:     s.newID(),
			SourceID:  source.ID,
			Window:    w,
			CreatedAt: s.now().UnixMilli(),
		}
		if err := tx.insertJob(job); err != nil {
			return err
		}
		s.log.Debug("created index job", "source", source.ID, "job", job.JobID, "window", w.String())
		out = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get or create job for %s: %w", source.ID, err)
	}
	return out, nil
}

// GetJob implements contract.JobStore.
func (s *Service) GetJob(ctx context.Context, jobID string) (*schema.IndexJob, error) {
	var out *schema.IndexJob
	err := s.eng.view(ctx, func(tx tx) error {
		var err error
		out, err = tx.job(jobID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return out, nil
}

// ListJobs implements contract.JobStore.
func (s *Service) ListJobs(ctx context.Context) ([]schema.IndexJob, error) {
	var out []schema.IndexJob
	err := s.eng.view(ctx, func(tx tx) error {
		var err error
		out, err = tx.listJobs()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

// MarkAsStarted implements contract.JobStore.
func (s *Service) MarkAsStarted(ctx context.Context, jobID string) (*schema.IndexJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out *schema.IndexJob
	err = s.update(ctx, job.SourceID, func(tx tx) error {
		j, err := tx.job(jobID)
		if err != nil {
			return err
		}
		j.StartedAt = s.now().UnixMilli()
		if err := tx.setJobStarted(jobID, j.StartedAt); err != nil {
			return err
		}
		out = j
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	return out, nil
}

// MarkAsFailed implements contract.JobStore.
func (s *Service) MarkAsFailed(ctx context.Context, jobID string) (*schema.IndexJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out *schema.IndexJob
	err = s.update(ctx, job.SourceID, func(tx tx) error {
		j, err := tx.job(jobID)
		if err != nil {
			return err
		}
		out = j
		if j.StartedAt == 0 {
			return nil
		}
		j.StartedAt = 0
		return tx.setJobStarted(jobID, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("reset job %s: %w", jobID, err)
	}
	s.log.Debug("reset failed index job", "source", job.SourceID, "job", jobID)
	return out, nil
}

// MarkAsComplete implements contract.JobStore.
// Deleting the job and merging its window happen in one transaction.
func (s *Service) MarkAsComplete(ctx context.Context, jobID string) (*schema.Tracker, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out *schema.Tracker
	err = s.update(ctx, job.SourceID, func(tx tx) error {
		j, err := tx.job(jobID)
		if err != nil {
			return err
		}
		if err := tx.deleteJob(jobID); err != nil {
			return err
		}
		t, err := tx.loadTracker(j.SourceID)
		if err != nil {
			return err
		}
		out, err = addWindowTx(tx, t, j.Window)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("complete job %s: %w", jobID, err)
	}
	s.log.Debug("completed index job", "source", job.SourceID, "job", jobID, "window", job.Window.String())
	return out, nil
}

// ListSources implements contract.SourceRegistry.
func (s *Service) ListSources(ctx context.Context) ([]schema.TrackedSource, error) {
	var out []schema.TrackedSource
	err := s.eng.view(ctx, func(tx tx) error {
		var err error
		out, err = tx.listSources()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return out, nil
}

// ListEnabled implements contract.SourceRegistry.
func (s *Service) ListEnabled(ctx context.Context) ([]schema.TrackedSource, error) {
	all, err := s.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, src := range all {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled, nil
}

// GetSource implements contract.SourceRegistry.
func (s *Service) GetSource(ctx context.Context, id string) (schema.TrackedSource, error) {
	var out schema.TrackedSource
	err := s.eng.view(ctx, func(tx tx) error {
		var err error
		out, err = tx.source(id)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("get source %s: %w", id, err)
	}
	return out, nil
}

// PutSource implements contract.SourceRegistry.
func (s *Service) PutSource(ctx context.Context, source schema.TrackedSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	return s.update(ctx, source.ID, func(tx tx) error {
		return tx.putSource(source)
	})
}

// DeleteSource implements contract.SourceRegistry.
// The open job of the source goes with it. The tracker is kept.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	err := s.update(ctx, id, func(tx tx) error {
		if _, err := tx.source(id); err != nil {
			return err
		}
		job, err := tx.jobBySource(id)
		if err != nil {
			return err
		}
		if job != nil {
			if err := tx.deleteJob(job.JobID); err != nil {
				return err
			}
		}
		return tx.deleteSource(id)
	})
	if err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	return nil
}

// GetStatus implements contract.Store.
func (s *Service) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{Backend: string(s.eng.backend()), Connected: true}

	sizes, err := s.eng.tableSizes(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to get table sizes: %w", err)
	}
	status.TableSizes = sizes
	status.TotalSources = int(sizes[sourcesTable])
	status.TotalWindows = int(sizes[windowsTable])

	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return status, err
	}
	status.OpenJobs = len(jobs)
	for _, j := range jobs {
		if j.Started() {
			status.RunningJobs++
		}
	}
	return status, nil
}

// Close implements contract.Store.
func (s *Service) Close() error {
	return s.eng.close()
}

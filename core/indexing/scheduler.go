// Package indexing drives the background migration of raw data into the
// indexed backend. A Scheduler picks the oldest open jobs on every tick and
// hands them to a bounded pool of Pipeline runs.
package indexing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/metrics"
	"github.com/huangsam/autoindex/schema"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"
)

// Store is the part of the persistence layer the Scheduler needs.
type Store interface {
	contract.JobStore
	ListEnabled(ctx context.Context) ([]schema.TrackedSource, error)
}

// Scheduler dispatches index jobs on a fixed period.
type Scheduler struct {
	store    Store
	runner   JobRunner
	cfg      contract.IndexingConfig
	workers  *semaphore.Weighted
	inFlight *xsync.MapOf[string, struct{}] // job ids handed to a worker
	wg       sync.WaitGroup
	now      func() time.Time
	log      contract.Logger
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the clock used for stale job detection.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the scheduler logger.
func WithLogger(log contract.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// NewScheduler builds a Scheduler. Zero values in cfg fall back to defaults.
func NewScheduler(store Store, runner JobRunner, cfg contract.IndexingConfig, opts ...Option) *Scheduler {
	if cfg.TasksPerRun <= 0 {
		cfg.TasksPerRun = contract.DefaultTasksPerRun
	}
	if cfg.Workers <= 0 {
		cfg.Workers = contract.DefaultWorkers
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = contract.DefaultTickPeriod
	}
	s := &Scheduler{
		store:    store,
		runner:   runner,
		cfg:      cfg,
		workers:  semaphore.NewWeighted(int64(cfg.Workers)),
		inFlight: xsync.NewMapOf[string, struct{}](),
		now:      time.Now,
		log:      contract.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type candidate struct {
	source schema.TrackedSource
	job    schema.IndexJob
}

// Tick selects up to TasksPerRun jobs, oldest first, and dispatches them
// without waiting for them to finish. It returns how many were dispatched.
// A registry failure aborts the tick. A failure on one source only skips it.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	metrics.Ticks.Inc()
	sources, err := s.store.ListEnabled(ctx)
	if err != nil {
		metrics.TickErrors.Inc()
		return 0, err
	}

	var candidates []candidate
	for _, source := range sources {
		job, err := s.store.GetOrCreate(ctx, source)
		if err != nil {
			s.log.WarnCtx(ctx, "cannot get index job", "source", source.ID, "error", err)
			continue
		}
		if job == nil || !s.eligible(*job) {
			continue
		}
		candidates = append(candidates, candidate{source: source, job: *job})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].job, candidates[j].job
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.SourceID < b.SourceID
	})
	if len(candidates) > s.cfg.TasksPerRun {
		candidates = candidates[:s.cfg.TasksPerRun]
	}

	dispatched := 0
	for _, c := range candidates {
		if s.dispatch(ctx, c) {
			dispatched++
		}
	}
	s.log.DebugCtx(ctx, "tick done", "sources", len(sources), "dispatched", dispatched)
	return dispatched, nil
}

// eligible keeps unstarted jobs, plus running jobs past the stale timeout
// that no worker of this process holds.
func (s *Scheduler) eligible(job schema.IndexJob) bool {
	if _, busy := s.inFlight.Load(job.JobID); busy {
		return false
	}
	if !job.Started() {
		return true
	}
	return s.cfg.StaleJobTimeout > 0 && s.now().Sub(job.StartedTime()) > s.cfg.StaleJobTimeout
}

func (s *Scheduler) dispatch(ctx context.Context, c candidate) bool {
	if _, loaded := s.inFlight.LoadOrStore(c.job.JobID, struct{}{}); loaded {
		return false
	}
	metrics.JobsDispatched.WithLabelValues(c.source.ID).Inc()
	metrics.JobsInFlight.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer metrics.JobsInFlight.Dec()
		defer s.inFlight.Delete(c.job.JobID)
		if err := s.workers.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.workers.Release(1)
		_ = s.runner.Run(ctx, c.source, c.job)
	}()
	return true
}

// InFlight returns the number of dispatched jobs that have not finished.
func (s *Scheduler) InFlight() int {
	return s.inFlight.Size()
}

// Wait blocks until every dispatched job has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Run ticks immediately and then every TickPeriod until ctx is done.
// It waits for dispatched jobs before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()
	defer s.Wait()

	s.log.InfoCtx(ctx, "scheduler started", "tick", s.cfg.TickPeriod, "tasks_per_run", s.cfg.TasksPerRun, "workers", s.cfg.Workers)
	for {
		if _, err := s.Tick(ctx); err != nil {
			s.log.ErrorCtx(ctx, "tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.log.InfoCtx(ctx, "scheduler stopping")
			return nil
		case <-ticker.C:
		}
	}
}

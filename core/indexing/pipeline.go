package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/autoindex/core/split"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/metrics"
	"github.com/huangsam/autoindex/schema"
)

// Pipeline stage names, also used as metric labels.
const (
	StageSearch   = "search"
	StageWrite    = "write"
	StageComplete = "complete"
)

const releaseTimeout = 10 * time.Second

// JobRunner migrates the window of one job.
type JobRunner interface {
	Run(ctx context.Context, source schema.TrackedSource, job schema.IndexJob) error
}

// Pipeline copies the rows of a job window from the raw backend into the
// indexed backend and then records the window as covered.
type Pipeline struct {
	jobs         contract.JobStore
	backends     contract.BackendProvider
	stageTimeout time.Duration
	log          contract.Logger
}

var _ JobRunner = &Pipeline{} // Compile-time check

// NewPipeline builds a Pipeline. stageTimeout <= 0 disables stage deadlines.
func NewPipeline(jobs contract.JobStore, backends contract.BackendProvider, stageTimeout time.Duration, log contract.Logger) *Pipeline {
	if log == nil {
		log = contract.NopLogger()
	}
	return &Pipeline{jobs: jobs, backends: backends, stageTimeout: stageTimeout, log: log}
}

// Run executes search, write and complete in order. The first failing stage
// aborts the job, which is reset to pending and picked up again by a later tick.
func (p *Pipeline) Run(ctx context.Context, source schema.TrackedSource, job schema.IndexJob) error {
	ctx = contract.WithDefaultArgs(ctx, "source", source.ID, "job", job.JobID)

	var rows *schema.ResultSet
	err := p.stage(ctx, StageSearch, func(ctx context.Context) error {
		var err error
		rows, err = p.search(ctx, source, job)
		return err
	})
	if err == nil {
		err = p.stage(ctx, StageWrite, func(ctx context.Context) error {
			return p.write(ctx, source, rows)
		})
	}
	if err == nil {
		err = p.stage(ctx, StageComplete, func(ctx context.Context) error {
			tracker, err := p.jobs.MarkAsComplete(ctx, job.JobID)
			if err != nil {
				return err
			}
			metrics.CoveragePercent.WithLabelValues(source.ID).Set(tracker.CoveragePercent())
			return nil
		})
	}

	if err != nil {
		metrics.JobResults.WithLabelValues(source.ID, "failure").Inc()
		p.log.WarnCtx(ctx, "index job failed", "window", job.Window, "error", err)
		p.release(ctx, job)
		return err
	}
	metrics.JobResults.WithLabelValues(source.ID, "success").Inc()
	metrics.RowsMigrated.WithLabelValues(source.ID).Add(float64(rows.Len()))
	p.log.InfoCtx(ctx, "index job done", "window", job.Window, "rows", rows.Len())
	return nil
}

// release clears the started stamp of a failed job. It runs on a context
// detached from cancellation so a timed out or stopped job is still reset.
func (p *Pipeline) release(ctx context.Context, job schema.IndexJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if _, err := p.jobs.MarkAsFailed(ctx, job.JobID); err != nil && !errors.Is(err, schema.ErrJobNotFound) {
		p.log.ErrorCtx(ctx, "failed to reset index job", "error", err)
	}
}

// search stamps the job as started and reads its window from the raw backend.
func (p *Pipeline) search(ctx context.Context, source schema.TrackedSource, job schema.IndexJob) (*schema.ResultSet, error) {
	if _, err := p.jobs.MarkAsStarted(ctx, job.JobID); err != nil {
		return nil, err
	}
	svc, err := p.backends.QueryService(source.Raw.Type)
	if err != nil {
		return nil, err
	}
	q := split.WithTimeBound(schema.Query{Key: job.JobID}, job.Window, source.Raw, source.TimeField)
	return svc.Execute(ctx, q)
}

func (p *Pipeline) write(ctx context.Context, source schema.TrackedSource, rows *schema.ResultSet) error {
	if rows.Len() == 0 {
		return nil
	}
	svc, err := p.backends.WriteService(source.Indexed.Type)
	if err != nil {
		return err
	}
	res, err := svc.BulkWrite(ctx, source.Indexed, rows)
	if err != nil {
		return err
	}
	if res.Partial() {
		return fmt.Errorf("%d of %d rows failed, first: %s: %w", len(res.Failures), rows.Len(), res.Failures[0], schema.ErrPartialWrite)
	}
	return nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StageResults.WithLabelValues(name, "failure").Inc()
		return fmt.Errorf("%s stage: %w", name, err)
	}
	metrics.StageResults.WithLabelValues(name, "success").Inc()
	p.log.DebugCtx(ctx, "stage done", "stage", name, "elapsed", time.Since(start))
	return nil
}

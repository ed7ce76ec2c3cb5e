package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/autoindex/internal/backend"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/store"
	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(10_000, 0)

// recordingRunner marks each job as started and remembers which source it ran for.
type recordingRunner struct {
	jobs    contract.JobStore
	release chan struct{}

	mu   sync.Mutex
	seen []string
}

func (r *recordingRunner) Run(ctx context.Context, source schema.TrackedSource, job schema.IndexJob) error {
	if _, err := r.jobs.MarkAsStarted(ctx, job.JobID); err != nil {
		return err
	}
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, source.ID)
	return nil
}

func (r *recordingRunner) sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func seedSources(t *testing.T, s *store.Service, n int) {
	t.Helper()
	for i := range n {
		source := testSource(fmt.Sprintf("src%02d", i))
		require.NoError(t, s.PutSource(context.Background(), source))
		_, err := s.SetBounds(context.Background(), source.ID, schema.Window{From: 0, To: 1000})
		require.NoError(t, err)
	}
}

func TestTickFairness(t *testing.T) {
	const m, k = 10, 3
	ctx := context.Background()
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return t0 }))
	seedSources(t, s, m)

	runner := &recordingRunner{jobs: s}
	sched := NewScheduler(s, runner, contract.IndexingConfig{TasksPerRun: k, Workers: 2})

	ticks := (m + k - 1) / k
	for i := range ticks {
		n, err := sched.Tick(ctx)
		require.NoError(t, err)
		sched.Wait()
		assert.Equal(t, min(k, m-i*k), n)
	}

	seen := runner.sources()
	assert.Len(t, seen, m)
	counts := map[string]int{}
	for _, id := range seen {
		counts[id]++
	}
	for i := range m {
		assert.Equal(t, 1, counts[fmt.Sprintf("src%02d", i)])
	}

	n, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTickOldestFirst(t *testing.T) {
	ctx := context.Background()
	now := t0
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return now }))
	for _, id := range []string{"b", "a", "c"} {
		source := testSource(id)
		require.NoError(t, s.PutSource(ctx, source))
		_, err := s.SetBounds(ctx, id, schema.Window{From: 0, To: 1000})
		require.NoError(t, err)
	}
	// Jobs created at different times: c oldest, then b.
	for _, id := range []string{"c", "b", "a"} {
		source, err := s.GetSource(ctx, id)
		require.NoError(t, err)
		_, err = s.GetOrCreate(ctx, source)
		require.NoError(t, err)
		now = now.Add(time.Second)
	}

	runner := &recordingRunner{jobs: s}
	sched := NewScheduler(s, runner, contract.IndexingConfig{TasksPerRun: 2, Workers: 1})
	n, err := sched.Tick(ctx)
	require.NoError(t, err)
	sched.Wait()
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"c", "b"}, runner.sources())
}

func TestTickSkipsJobsInFlight(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seedSources(t, s, 1)

	runner := &recordingRunner{jobs: s, release: make(chan struct{})}
	sched := NewScheduler(s, runner, contract.IndexingConfig{TasksPerRun: 5, Workers: 1, StaleJobTimeout: time.Nanosecond})

	n, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, sched.InFlight())

	n, err = sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	close(runner.release)
	sched.Wait()
	assert.Zero(t, sched.InFlight())
}

func TestTickRecoversStaleJobs(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return t0 }))
	seedSources(t, s, 1)
	runner := &recordingRunner{jobs: s}

	tests := []struct {
		name    string
		timeout time.Duration
		want    int
	}{
		{"disabled", 0, 0},
		{"not yet stale", 2 * time.Hour, 0},
		{"stale", 10 * time.Minute, 1},
	}

	first := NewScheduler(s, runner, contract.IndexingConfig{TasksPerRun: 1, Workers: 1})
	n, err := first.Tick(ctx)
	require.NoError(t, err)
	first.Wait()
	require.Equal(t, 1, n)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := NewScheduler(s, runner, contract.IndexingConfig{TasksPerRun: 1, Workers: 1, StaleJobTimeout: tt.timeout},
				WithClock(func() time.Time { return t0.Add(time.Hour) }))
			n, err := sched.Tick(ctx)
			require.NoError(t, err)
			sched.Wait()
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestTickRegistryErrorAbortsTick(t *testing.T) {
	ms := &store.MockStore{}
	ms.On("ListEnabled", mock.Anything).Return(nil, errors.New("registry down"))

	sched := NewScheduler(ms, &recordingRunner{jobs: ms}, contract.IndexingConfig{})
	_, err := sched.Tick(context.Background())
	assert.EqualError(t, err, "registry down")
	ms.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
}

func TestTickSkipsFailingSource(t *testing.T) {
	bad, good := testSource("bad"), testSource("good")
	job := &schema.IndexJob{JobID: "j1", SourceID: "good", Window: schema.Window{From: 0, To: 100}, CreatedAt: 1}

	ms := &store.MockStore{}
	ms.On("ListEnabled", mock.Anything).Return([]schema.TrackedSource{bad, good}, nil)
	ms.On("GetOrCreate", mock.Anything, bad).Return(nil, errors.New("boom"))
	ms.On("GetOrCreate", mock.Anything, good).Return(job, nil)
	ms.On("MarkAsStarted", mock.Anything, "j1").Return(job, nil)

	runner := &recordingRunner{jobs: ms}
	sched := NewScheduler(ms, runner, contract.IndexingConfig{TasksPerRun: 4, Workers: 1})
	n, err := sched.Tick(context.Background())
	require.NoError(t, err)
	sched.Wait()
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"good"}, runner.sources())
}

func TestTickExhaustedSource(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	source := testSource("done")
	require.NoError(t, s.PutSource(ctx, source))
	_, err := s.SetBounds(ctx, "done", schema.Window{From: 0, To: 100})
	require.NoError(t, err)
	_, err = s.AddWindow(ctx, "done", schema.Window{From: 0, To: 100})
	require.NoError(t, err)

	sched := NewScheduler(s, &recordingRunner{jobs: s}, contract.IndexingConfig{})
	n, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := store.NewMemoryStore()
	seedSources(t, s, 2)
	runner := &recordingRunner{jobs: s}
	sched := NewScheduler(s, runner, contract.IndexingConfig{TasksPerRun: 5, Workers: 2, TickPeriod: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool { return len(runner.sources()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestTickRetriesFailedJob(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	source := testSource("logs")
	job := newJob(t, s, source)

	rows := &schema.ResultSet{Fields: []string{"ts"}, Rows: [][]string{{"150"}}}
	q := &backend.MockQueryService{}
	q.On("Execute", mock.Anything, mock.Anything).Return(rows, nil)
	w := &backend.MockWriteService{}
	w.On("BulkWrite", mock.Anything, source.Indexed, rows).
		Return(schema.WriteResult{Failures: []string{"row 0: rejected"}}, nil).Once()
	w.On("BulkWrite", mock.Anything, source.Indexed, rows).
		Return(schema.WriteResult{Written: 1}, nil).Once()

	reg := backend.NewRegistry()
	reg.Register(schema.CSVBackendType, q, nil)
	reg.Register(schema.ParquetBackendType, nil, w)

	// No stale timeout: only the reset makes the job eligible again.
	sched := NewScheduler(s, NewPipeline(s, reg, 0, nil), contract.IndexingConfig{TasksPerRun: 1, Workers: 1})

	n, err := sched.Tick(ctx)
	require.NoError(t, err)
	sched.Wait()
	assert.Equal(t, 1, n)

	open, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.False(t, open.Started())

	n, err = sched.Tick(ctx)
	require.NoError(t, err)
	sched.Wait()
	assert.Equal(t, 1, n)

	tr, err := s.GetTracker(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, []schema.Window{{From: 100, To: 200}}, tr.Windows)
	w.AssertExpectations(t)
}

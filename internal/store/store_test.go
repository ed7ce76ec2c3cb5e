package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(10_000, 0)

func testSource(id string, size int64) schema.TrackedSource {
	return schema.TrackedSource{
		ID:         id,
		Raw:        schema.BackendRef{Type: schema.CSVBackendType, Name: id},
		Indexed:    schema.BackendRef{Type: schema.ParquetBackendType, Name: id},
		TimeField:  "ts",
		WindowSize: size,
		Enabled:    true,
	}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("job-%03d", n)
	}
}

// forEachEngine runs fn against a fresh store of every engine.
func forEachEngine(t *testing.T, fn func(t *testing.T, s *Service)) {
	opts := []Option{WithClock(func() time.Time { return fixedNow }), WithIDGenerator(sequentialIDs())}
	engines := map[string]func(t *testing.T) *Service{
		"memory": func(*testing.T) *Service { return NewMemoryStore(opts...) },
		"sqlite": func(t *testing.T) *Service {
			s, err := NewSQLStore(schema.SQLiteBackend, ":memory:", opts...)
			require.NoError(t, err)
			return s
		},
		"bolt": func(t *testing.T) *Service {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "store.bolt"), opts...)
			require.NoError(t, err)
			return s
		},
	}
	for name, open := range engines {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer func() { _ = s.Close() }()
			fn(t, s)
		})
	}
}

func TestGetTrackerCreatesOnRead(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		tr, err := s.GetTracker(context.Background(), "unknown")
		require.NoError(t, err)
		assert.Equal(t, "unknown", tr.SourceID)
		assert.Nil(t, tr.Bounds)
		assert.Empty(t, tr.Windows)
	})
}

func TestAddWindow(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()

		tr, err := s.AddWindow(ctx, "src", schema.Window{From: 10, To: 20})
		require.NoError(t, err)
		assert.Equal(t, &schema.Window{From: 10, To: 20}, tr.Bounds)

		_, err = s.AddWindow(ctx, "src", schema.Window{From: 30, To: 40})
		require.NoError(t, err)
		_, err = s.AddWindow(ctx, "src", schema.Window{From: 20, To: 30})
		require.NoError(t, err)

		tr, err = s.GetTracker(ctx, "src")
		require.NoError(t, err)
		assert.Equal(t, []schema.Window{{From: 10, To: 40}}, tr.Windows, "touching windows collapse into one")
		assert.Equal(t, &schema.Window{From: 10, To: 40}, tr.Bounds)

		// Already covered: nothing changes.
		again, err := s.AddWindow(ctx, "src", schema.Window{From: 15, To: 25})
		require.NoError(t, err)
		assert.Equal(t, tr, again)

		_, err = s.AddWindow(ctx, "src", schema.Window{From: 5, To: 5})
		assert.ErrorIs(t, err, schema.ErrInvalidWindow)
	})
}

func TestSetBoundsAndClearWindows(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()

		tr, err := s.SetBounds(ctx, "src", schema.Window{From: 0, To: 1000})
		require.NoError(t, err)
		assert.Equal(t, &schema.Window{From: 0, To: 1000}, tr.Bounds)

		_, err = s.AddWindow(ctx, "src", schema.Window{From: 100, To: 200})
		require.NoError(t, err)
		tr, err = s.GetTracker(ctx, "src")
		require.NoError(t, err)
		assert.Equal(t, &schema.Window{From: 0, To: 1000}, tr.Bounds, "bounds do not shrink")

		tr, err = s.ClearWindows(ctx, "src")
		require.NoError(t, err)
		assert.Empty(t, tr.Windows)
		assert.Equal(t, &schema.Window{From: 0, To: 1000}, tr.Bounds)

		_, err = s.SetBounds(ctx, "src", schema.Window{From: 10, To: 0})
		assert.ErrorIs(t, err, schema.ErrInvalidWindow)
	})
}

func TestJobLifecycle(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		src := testSource("events", 30)

		job, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		assert.Nil(t, job, "no bounds and no lookback means nothing to do")

		_, err = s.SetBounds(ctx, "events", schema.Window{From: 0, To: 6089})
		require.NoError(t, err)

		job, err = s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, schema.Window{From: 6030, To: 6060}, job.Window)
		assert.Equal(t, fixedNow.UnixMilli(), job.CreatedAt)
		assert.False(t, job.Started())

		same, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, job, same, "get-or-create is idempotent")

		started, err := s.MarkAsStarted(ctx, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, fixedNow.UnixMilli(), started.StartedAt)

		stored, err := s.GetJob(ctx, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobRunning, stored.State())

		tr, err := s.MarkAsComplete(ctx, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, []schema.Window{{From: 6030, To: 6060}}, tr.Windows)
		assert.Equal(t, &schema.Window{From: 0, To: 6089}, tr.Bounds)

		_, err = s.GetJob(ctx, job.JobID)
		assert.ErrorIs(t, err, schema.ErrJobNotFound)
		_, err = s.MarkAsComplete(ctx, job.JobID)
		assert.ErrorIs(t, err, schema.ErrJobNotFound)

		next, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.NotEqual(t, job.JobID, next.JobID)
		assert.Equal(t, schema.Window{From: 6000, To: 6030}, next.Window)
	})
}

func TestMarkAsFailedResetsJob(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		src := testSource("events", 30)
		_, err := s.SetBounds(ctx, "events", schema.Window{From: 0, To: 6089})
		require.NoError(t, err)

		job, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		require.NotNil(t, job)
		_, err = s.MarkAsStarted(ctx, job.JobID)
		require.NoError(t, err)

		reset, err := s.MarkAsFailed(ctx, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobPending, reset.State())

		stored, err := s.GetJob(ctx, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobPending, stored.State())
		assert.Equal(t, job.Window, stored.Window)

		same, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, job.JobID, same.JobID, "the reset job is reused, not replaced")

		tr, err := s.GetTracker(ctx, "events")
		require.NoError(t, err)
		assert.Empty(t, tr.Windows)

		_, err = s.MarkAsFailed(ctx, "missing")
		assert.ErrorIs(t, err, schema.ErrJobNotFound)
	})
}

func TestGetOrCreateExhaustsTimeline(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		src := testSource("small", 30)
		_, err := s.SetBounds(ctx, "small", schema.Window{From: 0, To: 60})
		require.NoError(t, err)

		var windows []schema.Window
		for {
			job, err := s.GetOrCreate(ctx, src)
			require.NoError(t, err)
			if job == nil {
				break
			}
			windows = append(windows, job.Window)
			_, err = s.MarkAsComplete(ctx, job.JobID)
			require.NoError(t, err)
			require.Less(t, len(windows), 10)
		}
		assert.Equal(t, []schema.Window{{From: 30, To: 60}, {From: 0, To: 30}}, windows)

		tr, err := s.GetTracker(ctx, "small")
		require.NoError(t, err)
		assert.Equal(t, []schema.Window{{From: 0, To: 60}}, tr.Windows)
	})
}

func TestGetOrCreateSeedsBoundsFromLookback(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		src := testSource("seeded", 600)
		src.Lookback = 3600

		job, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, schema.Window{From: 9000, To: 9600}, job.Window)

		tr, err := s.GetTracker(ctx, "seeded")
		require.NoError(t, err)
		assert.Equal(t, &schema.Window{From: 6400, To: 10000}, tr.Bounds)
	})
}

func TestConcurrentGetOrCreateReturnsOneJob(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		src := testSource("busy", 10)
		_, err := s.SetBounds(ctx, "busy", schema.Window{From: 0, To: 1000})
		require.NoError(t, err)

		const workers = 16
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				job, err := s.GetOrCreate(ctx, src)
				if assert.NoError(t, err) && assert.NotNil(t, job) {
					ids[i] = job.JobID
				}
			}()
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		jobs, err := s.ListJobs(ctx)
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})
}

func TestConcurrentAddWindowKeepsWindowsMerged(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := range 40 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.AddWindow(ctx, "racy", schema.Window{From: int64(i) * 10, To: int64(i+1) * 10})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		tr, err := s.GetTracker(ctx, "racy")
		require.NoError(t, err)
		assert.Equal(t, []schema.Window{{From: 0, To: 400}}, tr.Windows)
		assert.Equal(t, &schema.Window{From: 0, To: 400}, tr.Bounds)
	})
}

func TestSourceRegistry(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()

		b := testSource("b", 60)
		a := testSource("a", 60)
		a.Lookback = 7200
		off := testSource("off", 60)
		off.Enabled = false
		for _, src := range []schema.TrackedSource{b, a, off} {
			require.NoError(t, s.PutSource(ctx, src))
		}

		all, err := s.ListSources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []schema.TrackedSource{a, b, off}, all)

		enabled, err := s.ListEnabled(ctx)
		require.NoError(t, err)
		assert.Equal(t, []schema.TrackedSource{a, b}, enabled)

		got, err := s.GetSource(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, a, got)

		a.WindowSize = 120
		require.NoError(t, s.PutSource(ctx, a))
		got, err = s.GetSource(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(120), got.WindowSize)

		job, err := s.GetOrCreate(ctx, a)
		require.NoError(t, err)
		require.NotNil(t, job)
		require.NoError(t, s.DeleteSource(ctx, "a"))
		_, err = s.GetSource(ctx, "a")
		assert.ErrorIs(t, err, schema.ErrSourceNotFound)
		_, err = s.GetJob(ctx, job.JobID)
		assert.ErrorIs(t, err, schema.ErrJobNotFound, "deleting a source drops its open job")

		assert.ErrorIs(t, s.DeleteSource(ctx, "a"), schema.ErrSourceNotFound)
		assert.Error(t, s.PutSource(ctx, schema.TrackedSource{ID: "broken"}))
	})
}

func TestGetStatus(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *Service) {
		ctx := context.Background()
		src := testSource("events", 30)
		require.NoError(t, s.PutSource(ctx, src))
		_, err := s.SetBounds(ctx, "events", schema.Window{From: 0, To: 600})
		require.NoError(t, err)
		_, err = s.AddWindow(ctx, "events", schema.Window{From: 0, To: 30})
		require.NoError(t, err)
		job, err := s.GetOrCreate(ctx, src)
		require.NoError(t, err)
		_, err = s.MarkAsStarted(ctx, job.JobID)
		require.NoError(t, err)

		status, err := s.GetStatus(ctx)
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Equal(t, 1, status.TotalSources)
		assert.Equal(t, 1, status.TotalWindows)
		assert.Equal(t, 1, status.OpenJobs)
		assert.Equal(t, 1, status.RunningJobs)
		assert.Equal(t, int64(1), status.TableSizes[boundsTable])
	})
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bolt")
	ctx := context.Background()

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	_, err = s.AddWindow(ctx, "src", schema.Window{From: -50, To: -10})
	require.NoError(t, err)
	_, err = s.AddWindow(ctx, "src", schema.Window{From: 5, To: 10})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	tr, err := s.GetTracker(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, []schema.Window{{From: -50, To: -10}, {From: 5, To: 10}}, tr.Windows, "negative epochs keep their order")
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	s, err := NewSQLStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, s.PutSource(ctx, testSource("events", 30)))
	_, err = s.AddWindow(ctx, "events", schema.Window{From: 0, To: 30})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	src, err := s.GetSource(ctx, "events")
	require.NoError(t, err)
	assert.True(t, src.Enabled)
	tr, err := s.GetTracker(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, []schema.Window{{From: 0, To: 30}}, tr.Windows)
}

func TestOpen(t *testing.T) {
	s, err := Open(schema.NoneBackend, "")
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	s, err = Open(schema.BoltBackend, filepath.Join(t.TempDir(), "x.bolt"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = Open(schema.DatabaseBackend("redis"), "")
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := NewSQLStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, Clear(schema.SQLiteBackend, path))
	assert.NoFileExists(t, path)
	assert.NoError(t, Clear(schema.SQLiteBackend, path), "missing files are fine")
	assert.NoError(t, Clear(schema.NoneBackend, ""))
}

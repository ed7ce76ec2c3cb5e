package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/huangsam/autoindex/core/timeline"
	"github.com/huangsam/autoindex/schema"
)

// memState is one immutable snapshot of the in-memory store.
type memState struct {
	windows map[string][]schema.Window
	bounds  map[string]schema.Window
	jobs    map[string]schema.IndexJob // by job id
	sources map[string]schema.TrackedSource
}

func newMemState() *memState {
	return &memState{
		windows: map[string][]schema.Window{},
		bounds:  map[string]schema.Window{},
		jobs:    map[string]schema.IndexJob{},
		sources: map[string]schema.TrackedSource{},
	}
}

func (m *memState) clone() *memState {
	c := &memState{
		windows: make(map[string][]schema.Window, len(m.windows)),
		bounds:  maps.Clone(m.bounds),
		jobs:    maps.Clone(m.jobs),
		sources: maps.Clone(m.sources),
	}
	for k, v := range m.windows {
		c.windows[k] = slices.Clone(v)
	}
	return c
}

// memoryEngine keeps everything in process memory. Writers work on a copy
// that replaces the current state only when the transaction succeeds.
type memoryEngine struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore returns a Service backed by process memory.
func NewMemoryStore(opts ...Option) *Service {
	return newService(&memoryEngine{state: newMemState()}, opts...)
}

func (e *memoryEngine) backend() schema.DatabaseBackend { return schema.NoneBackend }

func (e *memoryEngine) update(_ context.Context, _ string, fn func(tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.state.clone()
	if err := fn(&memTx{s: next}); err != nil {
		return err
	}
	e.state = next
	return nil
}

func (e *memoryEngine) view(_ context.Context, fn func(tx) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(&memTx{s: e.state})
}

func (e *memoryEngine) tableSizes(_ context.Context) (map[string]int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var windows int64
	for _, ws := range e.state.windows {
		windows += int64(len(ws))
	}
	return map[string]int64{
		windowsTable: windows,
		boundsTable:  int64(len(e.state.bounds)),
		jobsTable:    int64(len(e.state.jobs)),
		sourcesTable: int64(len(e.state.sources)),
	}, nil
}

func (e *memoryEngine) close() error { return nil }

type memTx struct {
	s *memState
}

func (t *memTx) loadTracker(sourceID string) (*schema.Tracker, error) {
	tr := schema.NewTracker(sourceID)
	tr.Windows = append(tr.Windows, t.s.windows[sourceID]...)
	timeline.SortWindows(tr.Windows)
	if b, ok := t.s.bounds[sourceID]; ok {
		tr.Bounds = &b
	}
	return tr, nil
}

func (t *memTx) insertWindow(sourceID string, w schema.Window) error {
	t.s.windows[sourceID] = append(t.s.windows[sourceID], w)
	return nil
}

func (t *memTx) deleteWindows(sourceID string, ws []schema.Window) error {
	t.s.windows[sourceID] = slices.DeleteFunc(t.s.windows[sourceID], func(w schema.Window) bool {
		return slices.Contains(ws, w)
	})
	return nil
}

func (t *memTx) clearWindows(sourceID string) error {
	delete(t.s.windows, sourceID)
	return nil
}

func (t *memTx) putBounds(sourceID string, b schema.Window) error {
	t.s.bounds[sourceID] = b
	return nil
}

func (t *memTx) jobBySource(sourceID string) (*schema.IndexJob, error) {
	for _, j := range t.s.jobs {
		if j.SourceID == sourceID {
			return &j, nil
		}
	}
	return nil, nil
}

func (t *memTx) job(jobID string) (*schema.IndexJob, error) {
	j, ok := t.s.jobs[jobID]
	if !ok {
		return nil, schema.ErrJobNotFound
	}
	return &j, nil
}

func (t *memTx) listJobs() ([]schema.IndexJob, error) {
	out := slices.Collect(maps.Values(t.s.jobs))
	sortJobs(out)
	return out, nil
}

func (t *memTx) insertJob(j schema.IndexJob) error {
	t.s.jobs[j.JobID] = j
	return nil
}

func (t *memTx) setJobStarted(jobID string, startedAt int64) error {
	j, ok := t.s.jobs[jobID]
	if !ok {
		return schema.ErrJobNotFound
	}
	j.StartedAt = startedAt
	t.s.jobs[jobID] = j
	return nil
}

func (t *memTx) deleteJob(jobID string) error {
	delete(t.s.jobs, jobID)
	return nil
}

func (t *memTx) listSources() ([]schema.TrackedSource, error) {
	out := slices.Collect(maps.Values(t.s.sources))
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) source(id string) (schema.TrackedSource, error) {
	s, ok := t.s.sources[id]
	if !ok {
		return s, schema.ErrSourceNotFound
	}
	return s, nil
}

func (t *memTx) putSource(s schema.TrackedSource) error {
	t.s.sources[s.ID] = s
	return nil
}

func (t *memTx) deleteSource(id string) error {
	delete(t.s.sources, id)
	return nil
}

// sortJobs orders jobs oldest first, then by source id.
func sortJobs(jobs []schema.IndexJob) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt != jobs[j].CreatedAt {
			return jobs[i].CreatedAt < jobs[j].CreatedAt
		}
		return jobs[i].SourceID < jobs[j].SourceID
	})
}

package store

import (
	"context"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of contract.Store for testing.
type MockStore struct {
	mock.Mock
}

var _ contract.Store = &MockStore{} // Compile-time check

func trackerArg(ret mock.Arguments) *schema.Tracker {
	t, _ := ret.Get(0).(*schema.Tracker)
	return t
}

func jobArg(ret mock.Arguments) *schema.IndexJob {
	j, _ := ret.Get(0).(*schema.IndexJob)
	return j
}

// GetTracker implements the TrackerStore interface.
func (m *MockStore) GetTracker(ctx context.Context, sourceID string) (*schema.Tracker, error) {
	ret := m.Called(ctx, sourceID)
	return trackerArg(ret), ret.Error(1)
}

// AddWindow implements the TrackerStore interface.
func (m *MockStore) AddWindow(ctx context.Context, sourceID string, w schema.Window) (*schema.Tracker, error) {
	ret := m.Called(ctx, sourceID, w)
	return trackerArg(ret), ret.Error(1)
}

// SetBounds implements the TrackerStore interface.
func (m *MockStore) SetBounds(ctx context.Context, sourceID string, bounds schema.Window) (*schema.Tracker, error) {
	ret := m.Called(ctx, sourceID, bounds)
	return trackerArg(ret), ret.Error(1)
}

// ClearWindows implements the TrackerStore interface.
func (m *MockStore) ClearWindows(ctx context.Context, sourceID string) (*schema.Tracker, error) {
	ret := m.Called(ctx, sourceID)
	return trackerArg(ret), ret.Error(1)
}

// GetOrCreate implements the JobStore interface.
func (m *MockStore) GetOrCreate(ctx context.Context, source schema.TrackedSource) (*schema.IndexJob, error) {
	ret := m.Called(ctx, source)
	return jobArg(ret), ret.Error(1)
}

// GetJob implements the JobStore interface.
func (m *MockStore) GetJob(ctx context.Context, jobID string) (*schema.IndexJob, error) {
	ret := m.Called(ctx, jobID)
	return jobArg(ret), ret.Error(1)
}

// ListJobs implements the JobStore interface.
func (m *MockStore) ListJobs(ctx context.Context) ([]schema.IndexJob, error) {
	ret := m.Called(ctx)
	jobs, _ := ret.Get(0).([]schema.IndexJob)
	return jobs, ret.Error(1)
}

// MarkAsStarted implements the JobStore interface.
func (m *MockStore) MarkAsStarted(ctx context.Context, jobID string) (*schema.IndexJob, error) {
	ret := m.Called(ctx, jobID)
	return jobArg(ret), ret.Error(1)
}

// MarkAsFailed implements the JobStore interface.
func (m *MockStore) MarkAsFailed(ctx context.Context, jobID string) (*schema.IndexJob, error) {
	ret := m.Called(ctx, jobID)
	return jobArg(ret), ret.Error(1)
}

// MarkAsComplete implements the JobStore interface.
func (m *MockStore) MarkAsComplete(ctx context.Context, jobID string) (*schema.Tracker, error) {
	ret := m.Called(ctx, jobID)
	return trackerArg(ret), ret.Error(1)
}

// ListSources implements the SourceRegistry interface.
func (m *MockStore) ListSources(ctx context.Context) ([]schema.TrackedSource, error) {
	ret := m.Called(ctx)
	sources, _ := ret.Get(0).([]schema.TrackedSource)
	return sources, ret.Error(1)
}

// ListEnabled implements the SourceRegistry interface.
func (m *MockStore) ListEnabled(ctx context.Context) ([]schema.TrackedSource, error) {
	ret := m.Called(ctx)
	sources, _ := ret.Get(0).([]schema.TrackedSource)
	return sources, ret.Error(1)
}

// GetSource implements the SourceRegistry interface.
func (m *MockStore) GetSource(ctx context.Context, id string) (schema.TrackedSource, error) {
	ret := m.Called(ctx, id)
	source, _ := ret.Get(0).(schema.TrackedSource)
	return source, ret.Error(1)
}

// PutSource implements the SourceRegistry interface.
func (m *MockStore) PutSource(ctx context.Context, source schema.TrackedSource) error {
	return m.Called(ctx, source).Error(0)
}

// DeleteSource implements the SourceRegistry interface.
func (m *MockStore) DeleteSource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// GetStatus implements the Store interface.
func (m *MockStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	ret := m.Called(ctx)
	status, _ := ret.Get(0).(schema.StoreStatus)
	return status, ret.Error(1)
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

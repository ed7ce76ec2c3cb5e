package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/autoindex/internal/backend"
	"github.com/huangsam/autoindex/internal/backend/parquetstore"
	"github.com/huangsam/autoindex/internal/store"
	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var events = schema.TrackedSource{
	ID:         "events",
	Raw:        schema.BackendRef{Type: schema.CSVBackendType, Name: "events"},
	Indexed:    schema.BackendRef{Type: schema.ParquetBackendType, Name: "events_idx"},
	TimeField:  "ts",
	WindowSize: 100,
	Enabled:    true,
}

// setup stores a raw row inside the covered window that must never surface,
// since covered time is answered by the indexed store only.
func setup(t *testing.T) (*Searcher, *store.Service) {
	t.Helper()
	ctx := context.Background()
	csvRoot, parquetRoot := t.TempDir(), t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(csvRoot, "events"), 0o755))
	raw := "ts,msg\n250,late\n50,early\n150,stale\n"
	require.NoError(t, os.WriteFile(filepath.Join(csvRoot, "events", "a.csv"), []byte(raw), 0o644))

	_, err := parquetstore.New(parquetRoot).BulkWrite(ctx, events.Indexed, &schema.ResultSet{
		Fields: []string{"ts", "msg", "host"},
		Rows:   [][]string{{"150", "indexed", "h1"}},
	})
	require.NoError(t, err)

	s := store.NewMemoryStore()
	require.NoError(t, s.PutSource(ctx, events))
	_, err = s.SetBounds(ctx, "events", schema.Window{From: 0, To: 300})
	require.NoError(t, err)
	_, err = s.AddWindow(ctx, "events", schema.Window{From: 100, To: 200})
	require.NoError(t, err)

	return NewSearcher(s, backend.NewDefaultRegistry(csvRoot, parquetRoot), 0, nil), s
}

func TestSearchFederated(t *testing.T) {
	searcher, _ := setup(t)

	rs, err := searcher.Search(context.Background(), "events", schema.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "msg", "host"}, rs.Fields)
	assert.Equal(t, [][]string{
		{"50", "early", ""},
		{"150", "indexed", "h1"},
		{"250", "late", ""},
	}, rs.Rows)
}

func TestSearchWithFilterAndPage(t *testing.T) {
	searcher, _ := setup(t)

	q := schema.Query{
		Expression:     schema.Term("ts", schema.CondGreaterThanOrEqualTo, "100"),
		ResultRequests: []schema.ResultRequest{{Fields: []string{"msg"}, Offset: 1, Length: 5}},
	}
	rs, err := searcher.Search(context.Background(), "events", q)
	require.NoError(t, err)
	assert.Equal(t, []string{"msg"}, rs.Fields)
	assert.Equal(t, [][]string{{"late"}}, rs.Rows)
}

func TestSearchWithoutBoundsOnlyHitsIndexed(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.PutSource(ctx, events))
	_, err := s.AddWindow(ctx, "events", schema.Window{From: 100, To: 200})
	require.NoError(t, err)

	q := &backend.MockQueryService{}
	q.On("Execute", mock.Anything, mock.MatchedBy(func(sub schema.Query) bool {
		return sub.DataSource == events.Indexed
	})).Return(&schema.ResultSet{Fields: []string{"ts"}, Rows: [][]string{{"120"}}}, nil).Once()

	reg := backend.NewRegistry()
	reg.Register(schema.ParquetBackendType, q, nil)

	rs, err := NewSearcher(s, reg, 2, nil).Search(ctx, "events", schema.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
	q.AssertExpectations(t)
}

func TestSearchFailsWhenSubQueryFails(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.PutSource(ctx, events))
	_, err := s.SetBounds(ctx, "events", schema.Window{From: 0, To: 300})
	require.NoError(t, err)
	_, err = s.AddWindow(ctx, "events", schema.Window{From: 100, To: 200})
	require.NoError(t, err)

	q := &backend.MockQueryService{}
	q.On("Execute", mock.Anything, mock.Anything).Return(&schema.ResultSet{}, nil)
	reg := backend.NewRegistry()
	reg.Register(schema.ParquetBackendType, q, nil)

	_, err = NewSearcher(s, reg, 0, nil).Search(ctx, "events", schema.Query{})
	assert.True(t, errors.Is(err, schema.ErrBackendUnavailable))
}

func TestSearchUnknownSource(t *testing.T) {
	searcher, _ := setup(t)
	_, err := searcher.Search(context.Background(), "nope", schema.Query{})
	assert.True(t, errors.Is(err, schema.ErrSourceNotFound))
}

func TestPlan(t *testing.T) {
	searcher, _ := setup(t)
	source, plan, err := searcher.Plan(context.Background(), "events", schema.Query{})
	require.NoError(t, err)
	assert.Equal(t, "ts", source.TimeField)
	assert.Equal(t, 3, plan.Len())
	assert.Len(t, plan[events.Indexed], 1)
	assert.Len(t, plan[events.Raw], 2)
}

package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var events = schema.BackendRef{Type: schema.CSVBackendType, Name: "events"}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, "events")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestGetSchema(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "ts,user\n1,bob\n")
	writeFile(t, root, "b.csv", "ts,host\n2,h1\n")
	writeFile(t, root, "c.csv", "")

	ds, err := New(root).GetSchema(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "user", "host"}, ds.Fields)

	_, err = New(root).GetSchema(context.Background(), schema.BackendRef{Type: schema.CSVBackendType, Name: "missing"})
	assert.ErrorIs(t, err, schema.ErrSourceNotFound)
}

func TestExecute(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "ts,user\n100,bob\n200,alice\n300,bob\n")
	writeFile(t, root, "b.csv", "user,ts,host\nbob,250,h1\n")
	s := New(root)

	q := schema.Query{
		DataSource: events,
		Expression: schema.And(
			schema.Term("user", schema.CondEquals, "bob"),
			schema.BetweenTerm("ts", schema.Window{From: 100, To: 300}),
		),
	}
	rs, err := s.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "user", "host"}, rs.Fields)
	assert.Equal(t, [][]string{{"100", "bob", ""}, {"250", "bob", "h1"}}, rs.Rows)

	q.Expression = schema.Term("ts", "LIKE", "1")
	_, err = s.Execute(context.Background(), q)
	assert.Error(t, err)

	_, err = s.Execute(context.Background(), schema.Query{DataSource: schema.BackendRef{Type: schema.CSVBackendType, Name: "../etc"}})
	assert.Error(t, err)
}

func TestExecuteEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "events"), 0o755))
	rs, err := New(root).Execute(context.Background(), schema.Query{DataSource: events})
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
}

func TestBulkWriteThenExecute(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	ctx := context.Background()

	res, err := s.BulkWrite(ctx, events, &schema.ResultSet{
		Fields: []string{"ts", "user"},
		Rows:   [][]string{{"1", "bob"}, {"2"}, {"3", "carol"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.True(t, res.Partial())
	assert.Len(t, res.Failures, 1)

	rs, err := s.Execute(ctx, schema.Query{DataSource: events})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "bob"}, {"3", "carol"}}, rs.Rows)

	res, err = s.BulkWrite(ctx, events, &schema.ResultSet{})
	require.NoError(t, err)
	assert.Zero(t, res.Written)
}

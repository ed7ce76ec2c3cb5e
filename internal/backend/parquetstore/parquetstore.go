// Package parquetstore is the indexed columnar backend. Each data set is a
// directory under the root and every bulk write adds one Parquet file to it.
package parquetstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/autoindex/internal/backend/filter"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/parquet"
	"github.com/huangsam/autoindex/schema"
)

// Store reads and writes Parquet data sets below Root.
type Store struct {
	Root string
}

var (
	_ contract.QueryService = &Store{} // Compile-time check
	_ contract.WriteService = &Store{} // Compile-time check
)

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

func (s *Store) dir(ref schema.BackendRef) (string, error) {
	if !filepath.IsLocal(ref.Name) {
		return "", fmt.Errorf("invalid data set name %q", ref.Name)
	}
	return filepath.Join(s.Root, ref.Name), nil
}

func (s *Store) files(ref schema.BackendRef) ([]string, error) {
	dir, err := s.dir(ref)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, schema.ErrSourceNotFound)
		}
	}
	sort.Strings(files)
	return files, nil
}

// scan feeds every row of the data set to fn.
func (s *Store) scan(ctx context.Context, ref schema.BackendRef, fn func(parquet.Row)) error {
	files, err := s.files(ref)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := parquet.ReadRowsParquet(path)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fn(row)
		}
	}
	return nil
}

// GetSchema returns the union of field names stored in the data set.
func (s *Store) GetSchema(ctx context.Context, ref schema.BackendRef) (schema.DataSchema, error) {
	b := filter.NewBuilder()
	err := s.scan(ctx, ref, func(row parquet.Row) {
		b.AddFields(row.Names()...)
	})
	if err != nil {
		return schema.DataSchema{}, err
	}
	return schema.DataSchema{Fields: b.Result().Fields}, nil
}

// Execute returns the rows of q.DataSource that match q.Expression.
func (s *Store) Execute(ctx context.Context, q schema.Query) (*schema.ResultSet, error) {
	if err := filter.Validate(q.Expression); err != nil {
		return nil, err
	}
	b := filter.NewBuilder()
	err := s.scan(ctx, q.DataSource, func(row parquet.Row) {
		if filter.Match(q.Expression, row.Value) {
			b.Add(row.Names(), row.Values())
		}
	})
	if err != nil {
		return nil, err
	}
	return b.Result(), nil
}

// BulkWrite stores rows as one new Parquet file of the target data set.
// Rows whose width does not match the fields are reported as failures.
// The file appears atomically, so readers never see half a write.
func (s *Store) BulkWrite(ctx context.Context, target schema.BackendRef, rows *schema.ResultSet) (schema.WriteResult, error) {
	var result schema.WriteResult
	if rows.Len() == 0 {
		return result, nil
	}
	dir, err := s.dir(target)
	if err != nil {
		return result, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create data set directory: %w", err)
	}

	records := make([]parquet.Row, 0, rows.Len())
	for i, row := range rows.Rows {
		if len(row) != len(rows.Fields) {
			result.Failures = append(result.Failures, fmt.Sprintf("row %d: has %d values for %d fields", i, len(row), len(rows.Fields)))
			continue
		}
		records = append(records, parquet.NewRow(rows.Fields, row))
	}
	if len(records) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return schema.WriteResult{}, err
	}

	name := fmt.Sprintf("part-%d-%s.parquet", time.Now().UnixNano(), uuid.NewString()[:8])
	tmp := filepath.Join(dir, "."+name+".tmp")
	defer func() { _ = os.Remove(tmp) }()
	if err := parquet.WriteRowsParquet(records, tmp); err != nil {
		return schema.WriteResult{}, err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return schema.WriteResult{}, fmt.Errorf("failed to publish %s: %w", name, err)
	}
	result.Written = len(records)
	return result, nil
}

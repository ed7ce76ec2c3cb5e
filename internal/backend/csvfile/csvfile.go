// Package csvfile is the raw flat-file backend. Each data set is a directory
// under the root holding CSV files that start with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/autoindex/internal/backend/filter"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
)

// Store reads and writes CSV data sets below Root.
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

// files lists the CSV files of a data set in name order.
func (s *Store) files(ref schema.BackendRef) ([]string, error) {
	dir, err := s.dir(ref)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
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

// GetSchema returns the union of the header rows of the data set.
func (s *Store) GetSchema(ctx context.Context, ref schema.BackendRef) (schema.DataSchema, error) {
	files, err := s.files(ref)
	if err != nil {
		return schema.DataSchema{}, err
	}
	b := filter.NewBuilder()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return schema.DataSchema{}, err
		}
		header, err := readHeader(path)
		if err != nil {
			return schema.DataSchema{}, err
		}
		b.AddFields(header...)
	}
	return schema.DataSchema{Fields: b.Result().Fields}, nil
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return header, nil
}

// Execute scans every file of q.DataSource and returns the matching rows.
func (s *Store) Execute(ctx context.Context, q schema.Query) (*schema.ResultSet, error) {
	if err := filter.Validate(q.Expression); err != nil {
		return nil, err
	}
	files, err := s.files(q.DataSource)
	if err != nil {
		return nil, err
	}
	b := filter.NewBuilder()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := scanFile(path, q.Expression, b); err != nil {
			return nil, err
		}
	}
	return b.Result(), nil
}

func scanFile(path string, expr schema.Expression, b *filter.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	b.AddFields(header...)

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		get := func(field string) (string, bool) {
			i, ok := index[field]
			if !ok || i >= len(record) {
				return "", false
			}
			return record[i], true
		}
		if filter.Match(expr, get) {
			b.Add(header, record)
		}
	}
}

// BulkWrite stores rows as a new CSV file of the target data set.
// Rows whose width does not match the fields are reported as failures.
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

	name := fmt.Sprintf("%d-%s.csv", time.Now().UnixNano(), uuid.NewString()[:8])
	tmp := filepath.Join(dir, "."+name+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return result, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = os.Remove(tmp) }()

	w := csv.NewWriter(f)
	if err := w.Write(rows.Fields); err != nil {
		_ = f.Close()
		return result, err
	}
	for i, row := range rows.Rows {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return schema.WriteResult{}, err
		}
		if len(row) != len(rows.Fields) {
			result.Failures = append(result.Failures, fmt.Sprintf("row %d: has %d values for %d fields", i, len(row), len(rows.Fields)))
			continue
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return schema.WriteResult{}, err
		}
		result.Written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return schema.WriteResult{}, err
	}
	if err := f.Close(); err != nil {
		return schema.WriteResult{}, err
	}
	if result.Written == 0 {
		return result, nil
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return schema.WriteResult{}, fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return result, nil
}

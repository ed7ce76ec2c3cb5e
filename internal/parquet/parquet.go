// Package parquet provides the Parquet file formats of autoindex:
// coverage exports of trackers and jobs, and the row files of the indexed backend.
// It is built on github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/autoindex/schema"
	"github.com/parquet-go/parquet-go"
)

// TrackerWindow represents one covered window of a tracked source.
// This struct maps to the tracker_windows table joined with timeline_bounds.
type TrackerWindow struct {
	// SourceID identifies the tracked source
	SourceID string `parquet:"source_id,snappy"`

	// WindowFrom is the inclusive lower edge in epoch seconds
	WindowFrom int64 `parquet:"window_from,snappy"`

	// WindowTo is the exclusive upper edge in epoch seconds
	WindowTo int64 `parquet:"window_to,snappy"`

	// BoundsFrom and BoundsTo are the outer range of the timeline (nullable)
	BoundsFrom *int64 `parquet:"bounds_from,optional,snappy"`
	BoundsTo   *int64 `parquet:"bounds_to,optional,snappy"`
}

// OpenJob represents an index job that has not completed yet.
type OpenJob struct {
	JobID      string     `parquet:"job_id,snappy"`
	SourceID   string     `parquet:"source_id,snappy"`
	WindowFrom int64      `parquet:"window_from,snappy"`
	WindowTo   int64      `parquet:"window_to,snappy"`
	CreatedAt  time.Time  `parquet:"created_at,snappy"`
	StartedAt  *time.Time `parquet:"started_at,optional,snappy"`
}

// Field is one named value of a row.
type Field struct {
	Name  string `parquet:"name,dict"`
	Value string `parquet:"value"`
}

// Row is one record of the indexed backend.
type Row struct {
	Fields []Field `parquet:"fields,list"`
}

// writeFile writes data to outputPath using a schema derived from T's struct tags.
func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return file.Sync()
}

// WriteTrackerWindowsParquet writes covered windows to a Parquet file.
func WriteTrackerWindowsParquet(data []TrackerWindow, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteOpenJobsParquet writes open jobs to a Parquet file.
func WriteOpenJobsParquet(data []OpenJob, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteRowsParquet writes indexed rows to a Parquet file.
func WriteRowsParquet(data []Row, outputPath string) error {
	return writeFile(data, outputPath)
}

// ReadRowsParquet reads every row of a Parquet file written by WriteRowsParquet.
func ReadRowsParquet(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	return rows, nil
}

// ConvertTracker flattens a tracker into one record per covered window.
func ConvertTracker(t *schema.Tracker) []TrackerWindow {
	out := make([]TrackerWindow, 0, len(t.Windows))
	for _, w := range t.Windows {
		rec := TrackerWindow{SourceID: t.SourceID, WindowFrom: w.From, WindowTo: w.To}
		if t.Bounds != nil {
			from, to := t.Bounds.From, t.Bounds.To
			rec.BoundsFrom = &from
			rec.BoundsTo = &to
		}
		out = append(out, rec)
	}
	return out
}

// ConvertJobs converts open jobs to Parquet records.
func ConvertJobs(jobs []schema.IndexJob) []OpenJob {
	out := make([]OpenJob, 0, len(jobs))
	for _, j := range jobs {
		rec := OpenJob{
			JobID:      j.JobID,
			SourceID:   j.SourceID,
			WindowFrom: j.Window.From,
			WindowTo:   j.Window.To,
			CreatedAt:  j.CreatedTime().UTC(),
		}
		if j.Started() {
			started := j.StartedTime().UTC()
			rec.StartedAt = &started
		}
		out = append(out, rec)
	}
	return out
}

// NewRow builds a Row from a result row aligned with fields.
func NewRow(fields []string, values []string) Row {
	row := Row{Fields: make([]Field, 0, len(fields))}
	for i, name := range fields {
		if i < len(values) {
			row.Fields = append(row.Fields, Field{Name: name, Value: values[i]})
		}
	}
	return row
}

// Names returns the field names of the row in order.
func (r Row) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values of the row in order.
func (r Row) Values() []string {
	values := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		values[i] = f.Value
	}
	return values
}

// Value returns the value of the named field and whether it is present.
func (r Row) Value(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

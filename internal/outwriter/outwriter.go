// Package outwriter renders trackers, jobs, split plans and search results
// as tables, JSON or CSV.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// OutWriter provides a unified interface for all output operations.
// Tables go to the terminal writer, JSON and CSV go to cfg.OutputFile or stdout.
type OutWriter struct {
	term io.Writer
}

// NewOutWriter creates an output writer whose tables go to stdout.
func NewOutWriter() *OutWriter {
	return &OutWriter{term: os.Stdout}
}

// NewOutWriterTo creates an output writer whose tables go to w.
func NewOutWriterTo(w io.Writer) *OutWriter {
	return &OutWriter{term: w}
}

// dispatch picks the writer for the configured output mode.
func (ow *OutWriter) dispatch(cfg *contract.Config, asJSON, asCSV, asTable func(io.Writer) error) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, asJSON, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, asCSV, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := asTable(ow.term); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// WriteCoverage prints the coverage status of each source.
func (ow *OutWriter) WriteCoverage(statuses []schema.CoverageStatus, cfg *contract.Config) error {
	return ow.dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, statuses) },
		func(w io.Writer) error { return writeCSVCoverage(w, statuses) },
		func(w io.Writer) error { return writeCoverageTable(w, statuses, cfg) },
	)
}

// WriteJobs prints the open index jobs.
func (ow *OutWriter) WriteJobs(jobs []schema.IndexJob, cfg *contract.Config) error {
	return ow.dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, jobs) },
		func(w io.Writer) error { return writeCSVJobs(w, jobs) },
		func(w io.Writer) error { return writeJobsTable(w, jobs) },
	)
}

// WriteSources prints the tracked source registry.
func (ow *OutWriter) WriteSources(sources []schema.TrackedSource, cfg *contract.Config) error {
	return ow.dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, sources) },
		func(w io.Writer) error { return writeCSVSources(w, sources) },
		func(w io.Writer) error { return writeSourcesTable(w, sources) },
	)
}

// WriteSplit prints the sub-queries of a split plan in window order.
func (ow *OutWriter) WriteSplit(plan schema.SplitQuery, cfg *contract.Config) error {
	subs := plan.Flatten()
	return ow.dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, subs) },
		func(w io.Writer) error { return writeCSVSplit(w, subs) },
		func(w io.Writer) error { return writeSplitTable(w, subs, cfg) },
	)
}

// WriteResults prints the rows of a search.
func (ow *OutWriter) WriteResults(rs *schema.ResultSet, cfg *contract.Config, duration time.Duration) error {
	return ow.dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, rs) },
		func(w io.Writer) error { return writeCSVResults(w, rs) },
		func(w io.Writer) error { return writeResultsTable(w, rs, cfg, duration) },
	)
}

func newTable(w io.Writer, headers []string, align tw.Align) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = align
	})
	return table
}

func renderTable(table *tablewriter.Table, data [][]string) error {
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(contract.DateTimeFormat)
}

func formatBounds(b *schema.Window) string {
	if b == nil {
		return "-"
	}
	return formatWindow(*b)
}

func formatWindow(w schema.Window) string {
	return fmt.Sprintf("%s .. %s", formatTime(w.Start()), formatTime(w.End()))
}

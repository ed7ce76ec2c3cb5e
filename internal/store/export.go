package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/parquet"
)

// ExportCoverage writes the windows of every tracked source and all open jobs
// to <outputFile>.windows.parquet and <outputFile>.jobs.parquet.
func ExportCoverage(ctx context.Context, s contract.Store, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := s.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalSources == 0 && status.TotalWindows == 0 {
		return errors.New("no tracker data found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	sources, err := s.ListSources(ctx)
	if err != nil {
		return err
	}
	var windows []parquet.TrackerWindow
	for _, src := range sources {
		t, err := s.GetTracker(ctx, src.ID)
		if err != nil {
			return err
		}
		windows = append(windows, parquet.ConvertTracker(t)...)
	}
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return err
	}

	windowsFile := outputFile + ".windows.parquet"
	if err := parquet.WriteTrackerWindowsParquet(windows, windowsFile); err != nil {
		return fmt.Errorf("failed to write windows: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d windows to: %s\n", len(windows), windowsFile)

	jobsFile := outputFile + ".jobs.parquet"
	if err := parquet.WriteOpenJobsParquet(parquet.ConvertJobs(jobs), jobsFile); err != nil {
		return fmt.Errorf("failed to write jobs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d open jobs to: %s\n", len(jobs), jobsFile)
	return nil
}

package store

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
)

// PrintStoreStatus prints store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Tracked Sources: %d\n", status.TotalSources)
	_, _ = fmt.Fprintf(w, "Covered Windows: %d\n", status.TotalWindows)
	_, _ = fmt.Fprintf(w, "Open Jobs: %d (%d running)\n", status.OpenJobs, status.RunningJobs)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// Coverage builds the coverage status of each source from its tracker and open job.
func Coverage(ctx context.Context, s contract.Store, sources []schema.TrackedSource) ([]schema.CoverageStatus, error) {
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	bySource := make(map[string]*schema.IndexJob, len(jobs))
	for i := range jobs {
		bySource[jobs[i].SourceID] = &jobs[i]
	}

	out := make([]schema.CoverageStatus, 0, len(sources))
	for _, source := range sources {
		tracker, err := s.GetTracker(ctx, source.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.NewCoverageStatus(source, tracker, bySource[source.ID]))
	}
	return out, nil
}

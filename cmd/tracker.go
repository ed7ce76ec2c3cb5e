package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/outwriter"
	"github.com/huangsam/autoindex/internal/store"
	"github.com/huangsam/autoindex/schema"
	"github.com/spf13/cobra"
)

// parseWindowFlags reads --from and --to as a window of epoch seconds.
func parseWindowFlags(cmd *cobra.Command) (schema.Window, error) {
	now := time.Now()
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	from, err := contract.ParseTimeValue(fromStr, now)
	if err != nil {
		return schema.Window{}, fmt.Errorf("invalid --from: %w", err)
	}
	to, err := contract.ParseTimeValue(toStr, now)
	if err != nil {
		return schema.Window{}, fmt.Errorf("invalid --to: %w", err)
	}
	return schema.NewWindow(from.Unix(), to.Unix())
}

// trackerCmd groups the tracker maintenance commands.
var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Inspect and maintain the indexed windows of sources",
	Long: `Inspect and maintain the timeline tracker of each source.

Subcommands:
  status     - Show coverage of every source, or of the given ones
  set-bounds - Overwrite the outer range of a source timeline
  add-window - Mark a window as indexed by hand
  clear      - Forget every indexed window of a source
  export     - Export windows and open jobs to Parquet files`,
}

var trackerStatusCmd = &cobra.Command{
	Use:     "status [source...]",
	Short:   "Show coverage of tracked sources",
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var sources []schema.TrackedSource
		if len(args) == 0 {
			all, err := appStore.ListSources(ctx)
			if err != nil {
				return err
			}
			sources = all
		}
		for _, id := range args {
			source, err := appStore.GetSource(ctx, id)
			if err != nil {
				return err
			}
			sources = append(sources, source)
		}
		statuses, err := store.Coverage(ctx, appStore, sources)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteCoverage(statuses, cfg)
	},
}

var trackerSetBoundsCmd = &cobra.Command{
	Use:   "set-bounds <source>",
	Short: "Overwrite the timeline bounds of a source",
	Long: `Overwrite the outer range of the source timeline. Uncovered time inside the
bounds is what the scheduler migrates and what raw sub-queries cover.

Examples:
  autoindex tracker set-bounds events --from "30 days ago"
  autoindex tracker set-bounds events --from 2024-01-01T00:00:00Z --to 2024-02-01T00:00:00Z`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := parseWindowFlags(cmd)
		if err != nil {
			return err
		}
		t, err := appStore.SetBounds(cmd.Context(), args[0], w)
		if err != nil {
			return err
		}
		fmt.Printf("Bounds of %s set to %s (%.1f%% covered).\n", args[0], t.Bounds, t.CoveragePercent())
		return nil
	},
}

var trackerAddWindowCmd = &cobra.Command{
	Use:     "add-window <source>",
	Short:   "Mark a window of a source as indexed",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := parseWindowFlags(cmd)
		if err != nil {
			return err
		}
		t, err := appStore.AddWindow(cmd.Context(), args[0], w)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s to %s, now %d windows.\n", w, args[0], len(t.Windows))
		return nil
	},
}

var trackerClearCmd = &cobra.Command{
	Use:     "clear <source>",
	Short:   "Forget every indexed window of a source, keeping its bounds",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := appStore.ClearWindows(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Cleared windows of %s.\n", args[0])
		return nil
	},
}

var trackerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export windows and open jobs to Parquet files",
	Long: `Write every tracked window and open job to <output-file>.windows.parquet and
<output-file>.jobs.parquet.

Examples:
  autoindex tracker export --output-file backup`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return store.ExportCoverage(cmd.Context(), appStore, cfg.OutputFile, os.Stdout)
	},
}

// jobsCmd groups the job commands.
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect index jobs",
}

var jobsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List open index jobs",
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobs, err := appStore.ListJobs(cmd.Context())
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteJobs(jobs, cfg)
	},
}

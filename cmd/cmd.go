// Package cmd defines the command-line interface for autoindex.
package cmd

import (
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(trackerCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	trackerCmd.AddCommand(trackerStatusCmd)
	trackerCmd.AddCommand(trackerSetBoundsCmd)
	trackerCmd.AddCommand(trackerAddWindowCmd)
	trackerCmd.AddCommand(trackerClearCmd)
	trackerCmd.AddCommand(trackerExportCmd)

	jobsCmd.AddCommand(jobsListCmd)

	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or bolt or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Connection string for mysql/postgresql, or file path for sqlite/bolt")
	rootCmd.PersistentFlags().String("csv-root", "data/raw", "Root directory of the raw CSV data sets")
	rootCmd.PersistentFlags().String("parquet-root", "data/indexed", "Root directory of the indexed Parquet data sets")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent pipeline workers and search sub-queries")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runCmd to Viper
	runCmd.Flags().Bool("indexing-enabled", true, "Run the background indexing scheduler")
	runCmd.Flags().Int("tasks-per-run", contract.DefaultTasksPerRun, "Maximum number of jobs dispatched per tick")
	runCmd.Flags().String("tick-period", contract.DefaultTickPeriod.String(), "Time between scheduler ticks")
	runCmd.Flags().String("stage-timeout", contract.DefaultStageTimeout.String(), "Timeout of each pipeline stage")
	runCmd.Flags().String("stale-job-timeout", "0", "Re-dispatch running jobs older than this (0 disables)")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}
	runCmd.Flags().Bool("once", false, "Run a single tick, wait for its jobs and exit")

	// Query flags are command local
	for _, c := range []*cobra.Command{searchCmd, splitCmd} {
		c.Flags().StringP("query", "q", "", "Path to a JSON query document, or - for stdin")
	}

	trackerSetBoundsCmd.Flags().String("from", "", "Lower edge: RFC3339, epoch seconds or 'N units ago'")
	trackerSetBoundsCmd.Flags().String("to", "now", "Upper edge: RFC3339, epoch seconds or 'N units ago'")
	trackerAddWindowCmd.Flags().String("from", "", "Lower edge: RFC3339, epoch seconds or 'N units ago'")
	trackerAddWindowCmd.Flags().String("to", "", "Upper edge: RFC3339, epoch seconds or 'N units ago'")

	sourceAddCmd.Flags().String("raw", "", "Raw backend as type:name (e.g. csv:events)")
	sourceAddCmd.Flags().String("indexed", "", "Indexed backend as type:name (e.g. parquet:events)")
	sourceAddCmd.Flags().String("time-field", "", "Name of the time field")
	sourceAddCmd.Flags().String("window-size", contract.DefaultWindowSize.String(), "Size of one migration window")
	sourceAddCmd.Flags().String("lookback", "", "Seed tracker bounds this far back from now")
	sourceAddCmd.Flags().Bool("disabled", false, "Register the source without scheduling it")

	migrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/autoindex/core/search"
	"github.com/huangsam/autoindex/internal/backend"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/store"
	"github.com/huangsam/autoindex/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// Runtime dependencies built by sharedSetup.
var (
	appStore contract.Store
	backends *backend.Registry
	logger   contract.Logger = contract.NopLogger()
)

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "autoindex",
	Short: "Migrate time-series data into an indexed store and query across both.",
	Long: `Autoindex tracks which time windows of a raw data source have been copied into
an indexed store, migrates the rest in the background, and answers queries by
splitting them between the two stores.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("AUTOINDEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("store-backend", schema.SQLiteBackend)
	viper.SetDefault("store-db-connect", "")
	viper.SetDefault("csv-root", "data/raw")
	viper.SetDefault("parquet-root", "data/indexed")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("indexing-enabled", true)
	viper.SetDefault("tasks-per-run", contract.DefaultTasksPerRun)
	viper.SetDefault("tick-period", contract.DefaultTickPeriod.String())
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("stage-timeout", contract.DefaultStageTimeout.String())
	viper.SetDefault("stale-job-timeout", "0")
	viper.SetDefault("metrics-addr", "")
}

func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".autoindex") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// loadConfigFile reads the config file when there is one.
func loadConfigFile() error {
	setConfigFile()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// loadConfig merges defaults, file, env and flags into cfg.
func loadConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup validates the config, opens the store, syncs the sources of
// the config file into it and registers the data backends.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	logger = contract.NewDefaultLogger(cfg.LogLevel)

	if err := store.Init(cfg.StoreBackend, cfg.StoreDBConnect, store.WithLogger(logger)); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	appStore = store.Get()

	if err := syncSources(ctx, appStore, cfg.Sources); err != nil {
		return err
	}
	backends = backend.NewDefaultRegistry(cfg.CSVRoot, cfg.ParquetRoot)
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// syncSources upserts the sources declared in the config file.
// Sources added through the CLI are left alone.
func syncSources(ctx context.Context, registry contract.SourceRegistry, sources []schema.TrackedSource) error {
	for _, source := range sources {
		if err := registry.PutSource(ctx, source); err != nil {
			return fmt.Errorf("failed to register source %s: %w", source.ID, err)
		}
	}
	return nil
}

func newSearcher() *search.Searcher {
	return search.NewSearcher(appStore, backends, cfg.Indexing.Workers, logger)
}

// Execute runs the root command and closes the store afterwards.
func Execute() error {
	defer store.Close()
	return rootCmd.ExecuteContext(rootCtx)
}

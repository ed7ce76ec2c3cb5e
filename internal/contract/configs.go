package contract

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/autoindex/schema"
)

// Default values for configuration.
const (
	DefaultTasksPerRun  = 4
	DefaultTickPeriod   = 120 * time.Second
	DefaultStageTimeout = 60 * time.Second
	DefaultWindowSize   = time.Hour
	MaxTasksPerRun      = 1000
)

// DefaultWorkers is the default number of concurrent pipeline workers.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// IndexingConfig holds the scheduler settings.
type IndexingConfig struct {
	Enabled         bool
	TasksPerRun     int
	TickPeriod      time.Duration
	Workers         int
	StageTimeout    time.Duration
	StaleJobTimeout time.Duration // 0 disables recovery of stuck running jobs
}

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Indexing IndexingConfig

	CSVRoot     string
	ParquetRoot string
	MetricsAddr string
	LogLevel    slog.Level

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	// Sources declared in the config file, synced into the registry on startup.
	Sources []schema.TrackedSource
}

// SourceRawInput is one entry of the sources list in the config file.
type SourceRawInput struct {
	ID         string `mapstructure:"id"`
	Raw        string `mapstructure:"raw"`     // type:name
	Indexed    string `mapstructure:"indexed"` // type:name
	TimeField  string `mapstructure:"time-field"`
	WindowSize string `mapstructure:"window-size"`
	Lookback   string `mapstructure:"lookback"`
	Enabled    *bool  `mapstructure:"enabled"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	CSVRoot        string `mapstructure:"csv-root"`
	ParquetRoot    string `mapstructure:"parquet-root"`
	LogLevel       string `mapstructure:"log-level"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`

	// --- Fields from runCmd.Flags() ---
	IndexingEnabled bool   `mapstructure:"indexing-enabled"`
	TasksPerRun     int    `mapstructure:"tasks-per-run"`
	TickPeriod      string `mapstructure:"tick-period"`
	Workers         int    `mapstructure:"workers"`
	StageTimeout    string `mapstructure:"stage-timeout"`
	StaleJobTimeout string `mapstructure:"stale-job-timeout"`
	MetricsAddr     string `mapstructure:"metrics-addr"`

	// --- Tracked sources from config file ---
	Sources []SourceRawInput `mapstructure:"sources"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Sources != nil {
		clone.Sources = slices.Clone(c.Sources)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processIndexing(cfg, input); err != nil {
		return err
	}
	if err := processSources(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs transfers and checks flat fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.CSVRoot = input.CSVRoot
	cfg.ParquetRoot = input.ParquetRoot
	cfg.MetricsAddr = input.MetricsAddr

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok || cfg.Output == schema.ParquetOut {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level
	return nil
}

// validateBackendConfigs validates the persistence backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, bolt, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.BoltBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// processIndexing validates the scheduler settings.
func processIndexing(cfg *Config, input *ConfigRawInput) error {
	idx := IndexingConfig{Enabled: input.IndexingEnabled}

	if input.TasksPerRun <= 0 || input.TasksPerRun > MaxTasksPerRun {
		return fmt.Errorf("tasks-per-run must be greater than 0 and cannot exceed %d (received %d)", MaxTasksPerRun, input.TasksPerRun)
	}
	idx.TasksPerRun = input.TasksPerRun

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	idx.Workers = input.Workers

	var err error
	if idx.TickPeriod, err = parseOptionalDuration(input.TickPeriod, DefaultTickPeriod); err != nil {
		return fmt.Errorf("invalid tick-period: %w", err)
	}
	if idx.StageTimeout, err = parseOptionalDuration(input.StageTimeout, DefaultStageTimeout); err != nil {
		return fmt.Errorf("invalid stage-timeout: %w", err)
	}
	if input.StaleJobTimeout != "" && input.StaleJobTimeout != "0" {
		if idx.StaleJobTimeout, err = ParseLookbackDuration(input.StaleJobTimeout); err != nil {
			return fmt.Errorf("invalid stale-job-timeout: %w", err)
		}
	}

	cfg.Indexing = idx
	return nil
}

// processSources parses the sources declared in the config file.
func processSources(cfg *Config, input *ConfigRawInput) error {
	cfg.Sources = nil
	seen := make(map[string]struct{}, len(input.Sources))
	for _, raw := range input.Sources {
		source, err := ParseSource(raw)
		if err != nil {
			return err
		}
		if _, dup := seen[source.ID]; dup {
			return fmt.Errorf("source %s is declared more than once", source.ID)
		}
		seen[source.ID] = struct{}{}
		cfg.Sources = append(cfg.Sources, source)
	}
	return nil
}

// ParseSource converts a raw source entry into a validated TrackedSource.
func ParseSource(raw SourceRawInput) (schema.TrackedSource, error) {
	source := schema.TrackedSource{ID: strings.TrimSpace(raw.ID), TimeField: raw.TimeField, Enabled: true}
	if raw.Enabled != nil {
		source.Enabled = *raw.Enabled
	}

	var err error
	if source.Raw, err = schema.ParseBackendRef(raw.Raw); err != nil {
		return source, fmt.Errorf("source %s: %w", source.ID, err)
	}
	if source.Indexed, err = schema.ParseBackendRef(raw.Indexed); err != nil {
		return source, fmt.Errorf("source %s: %w", source.ID, err)
	}

	size, err := parseOptionalDuration(raw.WindowSize, DefaultWindowSize)
	if err != nil {
		return source, fmt.Errorf("source %s: invalid window-size: %w", source.ID, err)
	}
	source.WindowSize = int64(size / time.Second)

	if raw.Lookback != "" {
		lookback, err := ParseLookbackDuration(raw.Lookback)
		if err != nil {
			return source, fmt.Errorf("source %s: invalid lookback: %w", source.ID, err)
		}
		source.Lookback = int64(lookback / time.Second)
	}

	if err := source.Validate(); err != nil {
		return source, err
	}
	return source, nil
}

// ParseLogLevel maps a level name onto slog levels. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", s)
	}
}

func parseOptionalDuration(s string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return ParseLookbackDuration(s)
}

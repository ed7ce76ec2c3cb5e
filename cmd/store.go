package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/autoindex/internal/store"
	"github.com/spf13/cobra"
)

// storeCmd groups the persistence maintenance commands.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect or wipe the tracker store",
}

var storeStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show store backend, row counts and open jobs",
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := appStore.GetStatus(cmd.Context())
		if err != nil {
			return err
		}
		store.PrintStoreStatus(os.Stdout, status)
		return nil
	},
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every tracker, job and source of the configured store",
	Long: `Wipe all persisted state. SQLite and bolt files are deleted; MySQL and
PostgreSQL tables are dropped together with their migration history.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if err := store.Clear(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Printf("Cleared %s store.\n", cfg.StoreBackend)
		return nil
	},
}

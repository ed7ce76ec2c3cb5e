package cmd

import (
	"fmt"

	"github.com/huangsam/autoindex/internal/store"
	"github.com/spf13/cobra"
)

// migrateCmd runs the schema migrations of a SQL store.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema migrations of the SQL store",
	Long: `Bring the tables of a sqlite, mysql or postgresql store to a given version.

Examples:
  autoindex migrate
  autoindex migrate --target-version 1
  autoindex migrate --target-version 0 --store-backend postgresql --store-db-connect "host=localhost dbname=autoindex"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		target, _ := cmd.Flags().GetInt("target-version")
		result, err := store.Migrate(cfg.StoreBackend, cfg.StoreDBConnect, target)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if !result.Changed {
			fmt.Printf("Store already at version %d.\n", result.To)
			return nil
		}
		fmt.Printf("Migrated store from version %d to %d.\n", result.From, result.To)
		return nil
	},
}

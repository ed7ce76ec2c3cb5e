package cmd

import (
	"fmt"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/outwriter"
	"github.com/spf13/cobra"
)

// sourceCmd groups the source registry commands.
var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage the registry of tracked sources",
	Long: `Manage the tracked sources the scheduler migrates.

Sources declared under "sources:" in the config file are registered on every
start. Sources added here persist in the store until removed.`,
}

var sourceListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List tracked sources",
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sources, err := appStore.ListSources(cmd.Context())
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteSources(sources, cfg)
	},
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register or update a tracked source",
	Long: `Register a tracked source, or overwrite an existing one with the same id.

Examples:
  autoindex source add events --raw csv:events --indexed parquet:events --time-field ts
  autoindex source add logs --raw csv:logs --indexed parquet:logs --time-field at --window-size 6h --lookback "30 days"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		raw := contract.SourceRawInput{ID: args[0]}
		raw.Raw, _ = flags.GetString("raw")
		raw.Indexed, _ = flags.GetString("indexed")
		raw.TimeField, _ = flags.GetString("time-field")
		raw.WindowSize, _ = flags.GetString("window-size")
		raw.Lookback, _ = flags.GetString("lookback")
		disabled, _ := flags.GetBool("disabled")
		enabled := !disabled
		raw.Enabled = &enabled

		source, err := contract.ParseSource(raw)
		if err != nil {
			return err
		}
		if err := appStore.PutSource(cmd.Context(), source); err != nil {
			return err
		}
		fmt.Printf("Registered source %s (%s -> %s).\n", source.ID, source.Raw, source.Indexed)
		return nil
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a tracked source and its open job",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appStore.DeleteSource(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed source %s. Its tracker is kept.\n", args[0])
		return nil
	},
}

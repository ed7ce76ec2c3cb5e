package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/autoindex/core/search"
	"github.com/huangsam/autoindex/internal/outwriter"
	"github.com/huangsam/autoindex/schema"
	"github.com/spf13/cobra"
)

// readQuery loads the --query document. No flag means match everything.
func readQuery(cmd *cobra.Command) (schema.Query, error) {
	path, _ := cmd.Flags().GetString("query")
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return schema.Query{}, nil
	case "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return schema.Query{}, fmt.Errorf("failed to read query: %w", err)
	}
	return search.DecodeQuery(data)
}

// searchCmd runs a federated query.
var searchCmd = &cobra.Command{
	Use:   "search <source>",
	Short: "Query a source across its raw and indexed backends",
	Long: `Split a query along the indexed windows of the source, run every part on the
backend that owns it and print the merged rows ordered by time.

Examples:
  # Everything in the source
  autoindex search events

  # Filtered, as JSON
  autoindex search events --query query.json --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := readQuery(cmd)
		if err != nil {
			return err
		}
		start := time.Now()
		rs, err := newSearcher().Search(cmd.Context(), args[0], q)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteResults(rs, cfg, time.Since(start))
	},
}

// splitCmd shows the split plan of a query without running it.
var splitCmd = &cobra.Command{
	Use:     "split <source>",
	Short:   "Show how a query would be split between backends",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := readQuery(cmd)
		if err != nil {
			return err
		}
		_, plan, err := newSearcher().Plan(cmd.Context(), args[0], q)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteSplit(plan, cfg)
	},
}

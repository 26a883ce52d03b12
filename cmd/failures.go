package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var failuresLimit int

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List dead-lettered processing errors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		failures, err := st.ListFailures(ctx, failuresLimit)
		if err != nil {
			return eris.Wrap(err, "list failures")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(failures)
	},
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 100, "max failures to list")
	rootCmd.AddCommand(failuresCmd)
}

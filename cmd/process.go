package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadmail-cli/internal/pipeline"
)

var processLimit int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Classify and extract companies from unprocessed emails",
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

		resolver, err := initResolver()
		if err != nil {
			return err
		}

		p, err := pipeline.NewProcessor(st, resolver)
		if err != nil {
			return err
		}

		limit := processLimit
		if limit <= 0 {
			limit = cfg.Ingest.MaxEmailsPerRun
		}

		summary, err := p.Run(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "max emails to process (default from config)")
	rootCmd.AddCommand(processCmd)
}

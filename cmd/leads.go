package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/store"
)

var (
	leadsLabel    string
	leadsMinScore float64
	leadsLimit    int
	leadsFormat   string
	leadsOut      string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List ranked leads",
	Long:  "Lists companies ordered by score. Output goes to stdout as JSON by default; --format yaml and --format xlsx write report files.",
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

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Label:    model.ScoreLabel(leadsLabel),
			MinScore: leadsMinScore,
			Limit:    leadsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		if leadsOut == "" {
			return exportLeads(os.Stdout, leads, leadsFormat)
		}

		f, err := os.Create(leadsOut)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close()

		if err := exportLeads(f, leads, leadsFormat); err != nil {
			return err
		}
		zap.L().Info("leads exported",
			zap.Int("count", len(leads)),
			zap.String("format", leadsFormat),
			zap.String("file", leadsOut),
		)
		return nil
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsLabel, "label", "", "filter by label (Strong, Moderate, Weak, Disqualified)")
	leadsCmd.Flags().Float64Var(&leadsMinScore, "min-score", 0, "minimum total score")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "max leads to list (0 = all)")
	leadsCmd.Flags().StringVar(&leadsFormat, "format", "json", "output format: json, yaml, or xlsx")
	leadsCmd.Flags().StringVar(&leadsOut, "out", "", "write to file instead of stdout")
	rootCmd.AddCommand(leadsCmd)
}

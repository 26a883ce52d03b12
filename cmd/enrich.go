package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadmail-cli/internal/enrich"
	"github.com/sells-group/leadmail-cli/internal/model"
)

// enrichPageSize is the company listing page size used while walking the
// full table.
const enrichPageSize = 200

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch public profiles for extracted companies",
	Long:  "Looks up each company's public profile and caches it. Fresh profiles are skipped; only stale or missing ones hit the network.",
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

		svc, err := enrich.NewService(st, initSearch(), enrich.NewWikipedia(), cfg.Enrich)
		if err != nil {
			return err
		}

		var companies []model.Company
		for offset := 0; ; offset += enrichPageSize {
			page, err := st.ListCompanies(ctx, enrichPageSize, offset)
			if err != nil {
				return eris.Wrap(err, "list companies")
			}
			companies = append(companies, page...)
			if len(page) < enrichPageSize {
				break
			}
		}

		summary, err := svc.EnrichAll(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "enrich companies")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

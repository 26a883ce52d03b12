package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/scorer"
)

var scoreRescore bool

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score enriched companies against the lead rubric",
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

		score, err := initScoreFunc()
		if err != nil {
			return err
		}

		summary := struct {
			Scored    int `json:"scored"`
			Skipped   int `json:"skipped"`
			NoProfile int `json:"no_profile"`
			Failed    int `json:"failed"`
		}{}

		for offset := 0; ; offset += enrichPageSize {
			page, err := st.ListCompanies(ctx, enrichPageSize, offset)
			if err != nil {
				return eris.Wrap(err, "list companies")
			}

			for _, company := range page {
				if !scoreRescore {
					existing, err := st.GetScore(ctx, company.ID)
					if err != nil {
						return eris.Wrap(err, "get score")
					}
					if existing != nil {
						summary.Skipped++
						continue
					}
				}

				profile, err := st.GetProfile(ctx, company.ID, 0)
				if err != nil {
					return eris.Wrap(err, "get profile")
				}
				if profile == nil {
					summary.NoProfile++
					continue
				}

				result, err := score(ctx, company.Name, *profile)
				if err != nil {
					summary.Failed++
					zap.L().Error("scoring failed",
						zap.String("company", company.Name),
						zap.Error(err),
					)
					continue
				}

				if err := st.SetScore(ctx, company.ID, result); err != nil {
					return eris.Wrap(err, "set score")
				}
				summary.Scored++
				zap.L().Debug("company scored",
					zap.String("company", company.Name),
					zap.Float64("total", result.TotalScore),
					zap.String("label", string(result.Label)),
				)
			}

			if len(page) < enrichPageSize {
				break
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// initScoreFunc selects the scoring engine: the rule-based rubric by
// default, the model-based path when enabled in config.
func initScoreFunc() (scoreFunc, error) {
	if !cfg.LLM.ScoringEnabled {
		return func(_ context.Context, _ string, profile model.CompanyProfile) (model.ScoreResult, error) {
			return scorer.Score(profile), nil
		}, nil
	}

	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic key is required when llm scoring is enabled (LEADMAIL_ANTHROPIC_KEY)")
	}

	llm, err := scorer.NewLLMScorer(initModelClient(), cfg.Anthropic, cfg.Scoring.DomainPreferences)
	if err != nil {
		return nil, eris.Wrap(err, "init llm scorer")
	}
	return llm.Score, nil
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreRescore, "rescore", false, "rescore companies that already have a score")
	rootCmd.AddCommand(scoreCmd)
}

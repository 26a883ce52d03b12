package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/cost"
	"github.com/sells-group/leadmail-cli/internal/extract"
	"github.com/sells-group/leadmail-cli/internal/store"
	"github.com/sells-group/leadmail-cli/pkg/anthropic"
	"github.com/sells-group/leadmail-cli/pkg/search"
)

// initModelClient builds the model client with spend tracking attached.
func initModelClient() anthropic.Client {
	return cost.NewTrackingClient(anthropic.NewClient(cfg.Anthropic.Key), cost.NewTracker(nil))
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadmail.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initResolver builds the email-to-company resolver. The model path is wired
// in only when extraction escalation is enabled; otherwise the resolver runs
// pure heuristics and never needs an API key.
func initResolver() (*extract.Resolver, error) {
	if !cfg.LLM.ExtractionEnabled {
		return extract.NewResolver(nil, false)
	}

	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic key is required when llm extraction is enabled (LEADMAIL_ANTHROPIC_KEY)")
	}

	agent, err := extract.NewAgent(initModelClient(), cfg.Anthropic)
	if err != nil {
		return nil, eris.Wrap(err, "init extraction agent")
	}
	return extract.NewResolver(agent, true)
}

// initSearch returns the configured web-search client, or nil when the
// provider has no credentials. Enrichment degrades to direct title lookups
// without one.
func initSearch() search.Client {
	client, err := search.New(cfg.Search)
	if err != nil {
		zap.L().Warn("search client init failed, enrichment will use direct title lookups", zap.Error(err))
		return nil
	}
	return client
}

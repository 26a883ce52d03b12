// Package search provides web-search clients used to locate company pages
// during enrichment. Two providers are supported: Serper (hosted Google SERP
// API) and a self-hosted SearxNG instance.
package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadmail-cli/internal/config"
)

// Result is one web search hit, normalized across providers.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Client defines the search operation shared by all providers.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// New builds the provider named in the configuration.
func New(cfg config.SearchConfig) (Client, error) {
	switch cfg.Provider {
	case "serper":
		if cfg.SerperKey == "" {
			return nil, eris.New("search: serper selected but no api key configured")
		}
		var opts []SerperOption
		if cfg.SerperEndpoint != "" {
			opts = append(opts, WithSerperEndpoint(cfg.SerperEndpoint))
		}
		return NewSerper(cfg.SerperKey, opts...), nil
	case "searxng":
		if cfg.SearxngURL == "" {
			return nil, eris.New("search: searxng selected but no base url configured")
		}
		return NewSearxng(cfg.SearxngURL), nil
	default:
		return nil, eris.Errorf("search: unknown provider %q", cfg.Provider)
	}
}

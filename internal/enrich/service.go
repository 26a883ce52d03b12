package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadmail-cli/internal/config"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/store"
	"github.com/sells-group/leadmail-cli/pkg/search"
)

// Summary reports the outcome of one enrichment run.
type Summary struct {
	Total   int `json:"total"`
	Cached  int `json:"cached"`
	Fetched int `json:"fetched"`
	Missing int `json:"missing"`
	Failed  int `json:"failed"`
}

// Service enriches companies with profiles, caching results in the store.
type Service struct {
	store  store.Store
	search search.Client
	wiki   *Wikipedia
	ttl    time.Duration
	conc   int
}

// NewService wires the enrichment service.
func NewService(st store.Store, sc search.Client, wiki *Wikipedia, cfg config.EnrichConfig) (*Service, error) {
	if st == nil {
		return nil, eris.New("enrich: nil store")
	}
	if wiki == nil {
		wiki = NewWikipedia()
	}
	ttlDays := cfg.ProfileTTLDays
	if ttlDays <= 0 {
		ttlDays = 7
	}
	conc := cfg.MaxConcurrent
	if conc <= 0 {
		conc = 4
	}
	return &Service{
		store:  st,
		search: sc,
		wiki:   wiki,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		conc:   conc,
	}, nil
}

// EnrichAll fetches profiles for every company missing a fresh one. Company
// failures are counted, logged, and skipped; only context cancellation stops
// the run.
func (s *Service) EnrichAll(ctx context.Context, companies []model.Company) (*Summary, error) {
	summary := &Summary{Total: len(companies)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.conc)

	results := make([]enrichOutcome, len(companies))
	for i, company := range companies {
		g.Go(func() error {
			results[i] = s.enrichOne(ctx, company)
			if results[i].err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, eris.Wrap(err, "enrich: run canceled")
	}

	for _, r := range results {
		switch {
		case r.err != nil:
			summary.Failed++
		case r.cached:
			summary.Cached++
		case r.found:
			summary.Fetched++
		default:
			summary.Missing++
		}
	}
	return summary, nil
}

type enrichOutcome struct {
	cached bool
	found  bool
	err    error
}

func (s *Service) enrichOne(ctx context.Context, company model.Company) enrichOutcome {
	existing, err := s.store.GetProfile(ctx, company.ID, s.ttl)
	if err != nil {
		zap.L().Warn("enrich: profile lookup failed",
			zap.String("company", company.Name), zap.Error(err))
		return enrichOutcome{err: err}
	}
	if existing != nil {
		return enrichOutcome{cached: true}
	}

	profile, err := s.Lookup(ctx, company.Name)
	if err != nil {
		zap.L().Warn("enrich: profile fetch failed",
			zap.String("company", company.Name), zap.Error(err))
		return enrichOutcome{err: err}
	}
	if profile == nil {
		return enrichOutcome{}
	}

	if err := s.store.SetProfile(ctx, company.ID, *profile); err != nil {
		zap.L().Warn("enrich: profile save failed",
			zap.String("company", company.Name), zap.Error(err))
		return enrichOutcome{err: err}
	}
	zap.L().Info("enrich: profile fetched",
		zap.String("company", company.Name),
		zap.String("title", profile.Title),
		zap.Float64("confidence", profile.Confidence),
	)
	return enrichOutcome{found: true}
}

// Lookup resolves a company name to a Wikipedia profile. A web search picks
// the article when a provider is configured; otherwise the name itself is
// tried as the title.
func (s *Service) Lookup(ctx context.Context, companyName string) (*model.CompanyProfile, error) {
	title := companyName
	if s.search != nil {
		if found, err := s.findArticleTitle(ctx, companyName); err != nil {
			zap.L().Warn("enrich: article search failed, trying direct title",
				zap.String("company", companyName), zap.Error(err))
		} else if found != "" {
			title = found
		}
	}
	return s.wiki.Profile(ctx, title)
}

func (s *Service) findArticleTitle(ctx context.Context, companyName string) (string, error) {
	results, err := s.search.Search(ctx, companyName+" company wikipedia", 5)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if title := wikipediaTitle(r.URL); title != "" {
			return title, nil
		}
	}
	return "", nil
}

// wikipediaTitle extracts the article title from an en.wikipedia.org URL.
func wikipediaTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(u.Hostname(), "wikipedia.org") {
		return ""
	}
	const prefix = "/wiki/"
	if !strings.HasPrefix(u.Path, prefix) {
		return ""
	}
	slug := strings.TrimPrefix(u.Path, prefix)
	slug, err = url.PathUnescape(slug)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(slug, "_", " ")
}

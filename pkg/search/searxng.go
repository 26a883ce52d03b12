package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// SearxngOption configures the SearxNG client.
type SearxngOption func(*searxngClient)

// WithSearxngHTTPClient sets a custom HTTP client.
func WithSearxngHTTPClient(hc *http.Client) SearxngOption {
	return func(c *searxngClient) {
		c.http = hc
	}
}

// WithSearxngRateLimit overrides the default request rate.
func WithSearxngRateLimit(rps float64, burst int) SearxngOption {
	return func(c *searxngClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type searxngClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewSearxng creates a client for a self-hosted SearxNG instance. The rate
// limit is conservative: public instances ban aggressive JSON clients.
func NewSearxng(baseURL string, opts ...SearxngOption) Client {
	c := &searxngClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (c *searxngClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "searxng: rate limit wait")
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	reqURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "searxng: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "searxng: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "searxng: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("searxng: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "searxng: unmarshal response")
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

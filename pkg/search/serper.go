package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultSerperEndpoint = "https://google.serper.dev/search"

// SerperOption configures the Serper client.
type SerperOption func(*serperClient)

// WithSerperEndpoint sets a custom endpoint (for testing).
func WithSerperEndpoint(endpoint string) SerperOption {
	return func(c *serperClient) {
		c.endpoint = endpoint
	}
}

// WithSerperHTTPClient sets a custom HTTP client.
func WithSerperHTTPClient(hc *http.Client) SerperOption {
	return func(c *serperClient) {
		c.http = hc
	}
}

// WithSerperRateLimit overrides the default request rate.
func WithSerperRateLimit(rps float64, burst int) SerperOption {
	return func(c *serperClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type serperClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewSerper creates a Serper search client. The default limiter stays well
// inside the free-tier quota.
func NewSerper(apiKey string, opts ...SerperOption) Client {
	c := &serperClient{
		apiKey:   apiKey,
		endpoint: defaultSerperEndpoint,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *serperClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "serper: rate limit wait")
	}
	if limit <= 0 {
		limit = 5
	}

	payload, err := json.Marshal(serperRequest{Q: query, GL: "in", HL: "en", Num: limit})
	if err != nil {
		return nil, eris.Wrap(err, "serper: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "serper: create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serper: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serper: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("serper: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "serper: unmarshal response")
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, r := range parsed.Organic {
		if r.Link == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

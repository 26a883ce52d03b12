package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/internal/config"
)

func TestSerper_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		var req serperRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Razorpay company wikipedia", req.Q)
		assert.Equal(t, 3, req.Num)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic": [
			{"title": "Razorpay - Wikipedia", "link": "https://en.wikipedia.org/wiki/Razorpay", "snippet": "Indian fintech"},
			{"title": "Razorpay", "link": "https://razorpay.com", "snippet": "Payments"},
			{"title": "no link", "snippet": "dropped"}
		]}`))
	}))
	defer srv.Close()

	c := NewSerper("test-key", WithSerperEndpoint(srv.URL), WithSerperRateLimit(1000, 1000))
	results, err := c.Search(context.Background(), "Razorpay company wikipedia", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Razorpay", results[0].URL)
	assert.Equal(t, "Indian fintech", results[0].Snippet)
}

func TestSerper_Search_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewSerper("bad-key", WithSerperEndpoint(srv.URL), WithSerperRateLimit(1000, 1000))
	_, err := c.Search(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSerper_Search_LimitApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic": [
			{"title": "a", "link": "https://a.com"},
			{"title": "b", "link": "https://b.com"},
			{"title": "c", "link": "https://c.com"}
		]}`))
	}))
	defer srv.Close()

	c := NewSerper("k", WithSerperEndpoint(srv.URL), WithSerperRateLimit(1000, 1000))
	results, err := c.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestNew_ProviderSelection(t *testing.T) {
	_, err := New(config.SearchConfig{Provider: "serper"})
	assert.Error(t, err, "serper without a key must fail")

	c, err := New(config.SearchConfig{Provider: "serper", SerperKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = New(config.SearchConfig{Provider: "searxng", SearxngURL: "http://localhost:8888"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = New(config.SearchConfig{Provider: "bing"})
	assert.Error(t, err)
}

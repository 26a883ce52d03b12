package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearxng_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Globex company wikipedia", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "Globex - Wikipedia", "url": "https://en.wikipedia.org/wiki/Globex", "content": "conglomerate"},
			{"title": "empty url", "content": "dropped"}
		]}`))
	}))
	defer srv.Close()

	c := NewSearxng(srv.URL, WithSearxngRateLimit(1000, 1000))
	results, err := c.Search(context.Background(), "Globex company wikipedia", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Globex", results[0].URL)
	assert.Equal(t, "conglomerate", results[0].Snippet)
}

func TestSearxng_Search_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSearxng(srv.URL, WithSearxngRateLimit(1000, 1000))
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSearxng_TrailingSlashTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewSearxng(srv.URL+"/", WithSearxngRateLimit(1000, 1000))
	results, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

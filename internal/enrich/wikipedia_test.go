package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/internal/model"
)

const razorpayInfobox = `
<table class="infobox vcard">
  <tr><th>Industry</th><td>Financial technology<sup>[1]</sup></td></tr>
  <tr><th>Founded</th><td>2014; 11 years ago</td></tr>
  <tr><th>Headquarters</th><td>Bengaluru, Karnataka, India</td></tr>
  <tr><th>Number of employees</th><td>3,000+ (2023)</td></tr>
  <tr><th>Revenue</th><td>US$240 million (2023)</td></tr>
</table>`

func newWikiServer(t *testing.T, summary summaryResponse, articleHTML string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
			json.NewEncoder(w).Encode(summary)
		case r.URL.Path == "/w/api.php":
			assert.Equal(t, "parse", r.URL.Query().Get("action"))
			var p parseResponse
			p.Parse.Title = summary.Title
			p.Parse.Text.HTML = articleHTML
			json.NewEncoder(w).Encode(p)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestWikipedia_Profile_FullInfobox(t *testing.T) {
	srv := newWikiServer(t, summaryResponse{
		Title:   "Razorpay",
		Extract: "Razorpay is an Indian payments company.",
		Type:    "standard",
	}, razorpayInfobox)
	defer srv.Close()

	w := NewWikipedia(WithBaseURL(srv.URL))
	profile, err := w.Profile(context.Background(), "Razorpay")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "wikipedia", profile.Source)
	assert.Equal(t, "Razorpay", profile.Title)
	assert.Equal(t, "Razorpay is an Indian payments company.", profile.Description)
	assert.Equal(t, 2014, profile.FoundedYear)
	assert.Equal(t, 3000, profile.Employees)
	assert.Equal(t, "Bengaluru, Karnataka, India", profile.HQLocation)
	assert.Equal(t, "Financial technology", profile.Industry)
	assert.Equal(t, "US$240 million (2023)", profile.Revenue)
	// 5 infobox fields: 0.35 + 5*0.12 = 0.95 (capped).
	assert.InDelta(t, 0.95, profile.Confidence, 0.001)
	assert.False(t, profile.FetchedAt.IsZero())
}

func TestWikipedia_Profile_SummaryOnly(t *testing.T) {
	srv := newWikiServer(t, summaryResponse{
		Title:   "Globex",
		Extract: "Globex is a company.",
		Type:    "standard",
	}, "<p>no infobox here</p>")
	defer srv.Close()

	w := NewWikipedia(WithBaseURL(srv.URL))
	profile, err := w.Profile(context.Background(), "Globex")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.InDelta(t, confidenceBase, profile.Confidence, 0.001)
	assert.Zero(t, profile.FoundedYear)
}

func TestWikipedia_Profile_Disambiguation(t *testing.T) {
	srv := newWikiServer(t, summaryResponse{
		Title: "Mercury",
		Type:  "disambiguation",
	}, "")
	defer srv.Close()

	w := NewWikipedia(WithBaseURL(srv.URL))
	profile, err := w.Profile(context.Background(), "Mercury")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestWikipedia_Profile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	w := NewWikipedia(WithBaseURL(srv.URL))
	profile, err := w.Profile(context.Background(), "No Such Company XYZ")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestExtractInfobox(t *testing.T) {
	rows, err := extractInfobox(razorpayInfobox)
	require.NoError(t, err)
	assert.Equal(t, "2014; 11 years ago", rows["founded"])
	// Reference markers are stripped from values.
	assert.Equal(t, "Financial technology", rows["industry"])
}

func TestExtractInfobox_NoTable(t *testing.T) {
	rows, err := extractInfobox("<p>plain article</p>")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestApplyInfobox_PartialFields(t *testing.T) {
	p := &model.CompanyProfile{}
	fields := applyInfobox(p, map[string]string{
		"founded":  "March 1990",
		"industry": "Textiles",
		"website":  "example.com",
	})
	assert.Equal(t, 2, fields)
	assert.Equal(t, 1990, p.FoundedYear)
	assert.Equal(t, "Textiles", p.Industry)
}

func TestFirstYear(t *testing.T) {
	assert.Equal(t, 2014, firstYear("2014; 11 years ago"))
	assert.Equal(t, 1887, firstYear("Founded in 1887 in Pune"))
	assert.Equal(t, 0, firstYear("no year here"))
	assert.Equal(t, 0, firstYear("room 425"))
}

func TestFirstInt(t *testing.T) {
	assert.Equal(t, 3000, firstInt("3,000+ (2023)"))
	assert.Equal(t, 50, firstInt("about 50 people"))
	assert.Equal(t, 0, firstInt("unknown"))
}

// Package enrich builds company profiles from public sources. Wikipedia is
// the only profile source today: a web search locates the article, the REST
// summary supplies the description, and the article infobox supplies the
// structured fields the scorer consumes.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sells-group/leadmail-cli/internal/model"
)

const (
	defaultWikipediaBase = "https://en.wikipedia.org"

	// Confidence grows with the number of infobox fields recovered. A bare
	// summary match is worth little; a full infobox is close to certain.
	confidenceBase     = 0.35
	confidencePerField = 0.12
	confidenceCap      = 0.95
)

// WikipediaOption configures the Wikipedia client.
type WikipediaOption func(*Wikipedia)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(base string) WikipediaOption {
	return func(w *Wikipedia) {
		w.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) WikipediaOption {
	return func(w *Wikipedia) {
		w.http = hc
	}
}

// Wikipedia fetches article summaries and infoboxes.
type Wikipedia struct {
	baseURL string
	http    *http.Client
}

// NewWikipedia creates a Wikipedia client.
func NewWikipedia(opts ...WikipediaOption) *Wikipedia {
	w := &Wikipedia{
		baseURL: defaultWikipediaBase,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Type    string `json:"type"`
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  struct {
			HTML string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
}

// Profile fetches and assembles a company profile for the given article
// title. A disambiguation page or a missing article returns nil, not an
// error: absence of a profile is a normal outcome.
func (w *Wikipedia) Profile(ctx context.Context, title string) (*model.CompanyProfile, error) {
	summary, err := w.fetchSummary(ctx, title)
	if err != nil {
		return nil, err
	}
	if summary == nil || summary.Type == "disambiguation" {
		return nil, nil
	}

	profile := &model.CompanyProfile{
		Source:      "wikipedia",
		SourceURL:   w.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(summary.Title, " ", "_")),
		Title:       summary.Title,
		Description: summary.Extract,
		FetchedAt:   time.Now().UTC(),
	}

	// The infobox endpoint failing is not fatal; a summary-only profile
	// just carries base confidence.
	fields := 0
	if infobox, err := w.fetchInfobox(ctx, summary.Title); err == nil {
		fields = applyInfobox(profile, infobox)
	} else {
		zap.L().Warn("enrich: infobox fetch failed", zap.String("title", summary.Title), zap.Error(err))
	}

	conf := confidenceBase + confidencePerField*float64(fields)
	if conf > confidenceCap {
		conf = confidenceCap
	}
	profile.Confidence = conf
	return profile, nil
}

func (w *Wikipedia) fetchSummary(ctx context.Context, title string) (*summaryResponse, error) {
	reqURL := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		w.baseURL, url.PathEscape(strings.ReplaceAll(title, " ", "_")))

	body, status, err := w.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: fetch summary")
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("wikipedia: summary status %d", status)
	}

	var s summaryResponse
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, eris.Wrap(err, "wikipedia: unmarshal summary")
	}
	return &s, nil
}

// fetchInfobox pulls the parsed article HTML and extracts the infobox rows
// as a label -> text map.
func (w *Wikipedia) fetchInfobox(ctx context.Context, title string) (map[string]string, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("prop", "text")
	params.Set("format", "json")
	reqURL := w.baseURL + "/w/api.php?" + params.Encode()

	body, status, err := w.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: fetch article")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("wikipedia: parse status %d", status)
	}

	var p parseResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, eris.Wrap(err, "wikipedia: unmarshal parse response")
	}
	return extractInfobox(p.Parse.Text.HTML)
}

func (w *Wikipedia) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "leadmail-cli/1.0")

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "read response body")
	}
	return body, resp.StatusCode, nil
}

// extractInfobox walks the article HTML for the first table with an
// "infobox" class and returns its th/td rows keyed by lower-cased label.
func extractInfobox(articleHTML string) (map[string]string, error) {
	doc, err := html.Parse(strings.NewReader(articleHTML))
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: parse article html")
	}

	table := findInfoboxTable(doc)
	if table == nil {
		return nil, nil
	}

	rows := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var label, value string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode {
					continue
				}
				switch c.Data {
				case "th":
					label = nodeText(c)
				case "td":
					value = nodeText(c)
				}
			}
			if label != "" && value != "" {
				rows[strings.ToLower(strings.TrimSpace(label))] = strings.TrimSpace(value)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows, nil
}

func findInfoboxTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		for _, attr := range n.Attr {
			if attr.Key == "class" && strings.Contains(attr.Val, "infobox") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findInfoboxTable(c); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		// Reference markers pollute infobox values.
		if n.Type == html.ElementNode && n.Data == "sup" {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// applyInfobox copies recognized infobox rows onto the profile and returns
// the number of fields it filled.
func applyInfobox(profile *model.CompanyProfile, infobox map[string]string) int {
	fields := 0
	for label, value := range infobox {
		switch {
		case strings.HasPrefix(label, "founded") || strings.HasPrefix(label, "formation"):
			if year := firstYear(value); year > 0 {
				profile.FoundedYear = year
				fields++
			}
		case strings.Contains(label, "employees"):
			if n := firstInt(value); n > 0 {
				profile.Employees = n
				fields++
			}
		case strings.HasPrefix(label, "headquarters"):
			profile.HQLocation = value
			fields++
		case label == "industry":
			profile.Industry = value
			fields++
		case label == "revenue":
			profile.Revenue = value
			fields++
		}
	}
	return fields
}

var (
	yearRe = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	intRe  = regexp.MustCompile(`\d[\d,]*`)
)

func firstYear(s string) int {
	m := yearRe.FindString(s)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

func firstInt(s string) int {
	m := intRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

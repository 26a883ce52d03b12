package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadmail-cli/internal/extract"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/scorer"
	"github.com/sells-group/leadmail-cli/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	resolver, err := extract.NewResolver(nil, false)
	require.NoError(t, err)

	score := func(_ context.Context, _ string, profile model.CompanyProfile) (model.ScoreResult, error) {
		return scorer.Score(profile), nil
	}

	return buildRouter(st, resolver, score), st
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServe_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServe_Extract(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/extract", `{
		"subject": "Internship details",
		"body_text": "Company: Razorpay\nStipend: 50k",
		"from_email": "hr@razorpay.com"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.ExtractionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsLead)
	assert.Equal(t, "Razorpay", result.CompanyName)
	assert.Equal(t, "razorpay", result.NormalizedName)
}

func TestServe_Extract_RejectsEmptyRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/extract", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_Score(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/score", `{
		"company_name": "Razorpay",
		"profile": {
			"source": "wikipedia",
			"founded_year": 2014,
			"employees": 3000,
			"industry": "Financial technology software payments",
			"hq_location": "Bengaluru, India",
			"confidence": 0.95
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.ScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Disqualified)
	assert.Positive(t, result.TotalScore)
	assert.NotEmpty(t, result.Label)
}

func TestServe_Companies(t *testing.T) {
	router, st := newTestRouter(t)
	ctx := context.Background()

	_, err := st.UpsertCompany(ctx, "Razorpay", "razorpay")
	require.NoError(t, err)
	_, err = st.UpsertCompany(ctx, "Globex Inc", "globex")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/v1/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var companies []model.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &companies))
	assert.Len(t, companies, 2)

	rec = doJSON(t, router, http.MethodGet, "/v1/companies?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &companies))
	assert.Len(t, companies, 1)
}

func TestServe_Leads_FilterByLabel(t *testing.T) {
	router, st := newTestRouter(t)
	ctx := context.Background()

	strong, err := st.UpsertCompany(ctx, "Razorpay", "razorpay")
	require.NoError(t, err)
	require.NoError(t, st.SetScore(ctx, strong.ID, model.ScoreResult{
		TotalScore: 85, Label: model.LabelStrong,
	}))

	weak, err := st.UpsertCompany(ctx, "Globex", "globex")
	require.NoError(t, err)
	require.NoError(t, st.SetScore(ctx, weak.ID, model.ScoreResult{
		TotalScore: 45, Label: model.LabelWeak,
	}))

	rec := doJSON(t, router, http.MethodGet, "/v1/leads?label=Strong", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []model.RankedCompany
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Razorpay", leads[0].Company.Name)

	rec = doJSON(t, router, http.MethodGet, "/v1/leads?min_score=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Razorpay", leads[0].Company.Name)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&neg=-2", nil)
	assert.Equal(t, 5, queryInt(req, "limit", 50))
	assert.Equal(t, 50, queryInt(req, "bad", 50))
	assert.Equal(t, 50, queryInt(req, "neg", 50))
	assert.Equal(t, 50, queryInt(req, "missing", 50))
}

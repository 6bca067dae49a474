package auditapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iaros/pricing_pipeline/internal/auditapi"
	"iaros/pricing_pipeline/internal/auditstore"
)

type fakeStore struct {
	decisions []auditstore.PricingDecision
	failures  []auditstore.PricingFailure
	stats     auditstore.Statistics
	healthErr error
}

func (f *fakeStore) DecisionsBySKU(ctx context.Context, sku string, limit int) ([]auditstore.PricingDecision, error) {
	var out []auditstore.PricingDecision
	for _, d := range f.decisions {
		if d.SKU == sku {
			out = append(out, d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) RecentFailures(ctx context.Context, since time.Duration, limit int) ([]auditstore.PricingFailure, error) {
	return f.failures, nil
}

func (f *fakeStore) Statistics(ctx context.Context) (auditstore.Statistics, error) {
	return f.stats, nil
}

func (f *fakeStore) HealthCheck() error {
	return f.healthErr
}

func newTestRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := auditapi.NewHandler(store)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestDecisionsBySKU(t *testing.T) {
	store := &fakeStore{decisions: []auditstore.PricingDecision{
		{SKU: "SKU001", RecommendedPrice: 99.5},
		{SKU: "SKU002", RecommendedPrice: 10},
	}}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/decisions/sku/SKU001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Decisions []auditstore.PricingDecision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Decisions, 1)
	assert.Equal(t, "SKU001", resp.Decisions[0].SKU)
}

func TestDecisionsBySKUReturns404WhenEmpty(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/decisions/sku/UNKNOWN", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentFailuresDefaultsWindow(t *testing.T) {
	store := &fakeStore{failures: []auditstore.PricingFailure{{Error: "missing sku"}}}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/failures", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		WindowHours int `json:"window_hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 24, resp.WindowHours)
}

func TestStatistics(t *testing.T) {
	store := &fakeStore{stats: auditstore.Statistics{
		TotalDecisions:    5,
		TotalFailures:     1,
		AverageMargin:     0.18,
		AverageConfidence: 0.82,
	}}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/statistics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_decisions":5,"total_failures":1,"avg_margin":0.18,"avg_confidence":0.82}`, rec.Body.String())
}

func TestHealthCheckReportsUnhealthy(t *testing.T) {
	store := &fakeStore{healthErr: assertError{}}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

type assertError struct{}

func (assertError) Error() string { return "db unreachable" }

package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/v1/rankings/{jobID}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/rankings/{jobID}", http.MethodGet, "No Content"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rankings/job-42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/rankings/{jobID}", http.MethodGet, "No Content"))
	assert.InDelta(t, 1, after-before, 1e-9)
}

func TestInitMetrics_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		InitMetrics()
		InitMetrics()
	})
}

func TestRankAndDecisionHelpers(t *testing.T) {
	errBefore := testutil.ToFloat64(RankRunsTotal.WithLabelValues("test", "error"))
	done := StartRank("test")
	assert.InDelta(t, 1, testutil.ToFloat64(RankRunsInFlight), 1e-9)
	done(errors.New("boom"))
	assert.InDelta(t, 0, testutil.ToFloat64(RankRunsInFlight), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(RankRunsTotal.WithLabelValues("test", "error"))-errBefore, 1e-9)

	shortBefore := testutil.ToFloat64(DecisionsTotal.WithLabelValues("rank", string(domain.DecisionAutoShortlist)))
	ObserveCandidate(domain.ScoreBreakdown{Overall: 90}, domain.AgentAnalysis{Decision: domain.DecisionAutoShortlist, Confidence: 0.9})
	assert.InDelta(t, 1, testutil.ToFloat64(DecisionsTotal.WithLabelValues("rank", string(domain.DecisionAutoShortlist)))-shortBefore, 1e-9)

	ObserveReevaluation(domain.AgentAnalysis{Decision: domain.DecisionAutoReject, Confidence: 0.2})
	ObserveAnswerEval("heuristic", "ok", 10*time.Millisecond)
	CacheLookup("hit")
	EventPublished("candidate-decisions", nil)
	assert.GreaterOrEqual(t, testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("candidate-decisions", "ok")), 1.0)
}

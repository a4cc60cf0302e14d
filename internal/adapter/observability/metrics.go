package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AnswerEvalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_eval_requests_total",
			Help: "Answer evaluation calls by evaluator and outcome",
		},
		[]string{"evaluator", "outcome"},
	)
	AnswerEvalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "answer_eval_duration_seconds",
			Help:    "Answer evaluation latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"evaluator"},
	)

	RankRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_runs_total",
			Help: "Ranking runs by trigger and status",
		},
		[]string{"trigger", "status"},
	)
	RankRunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ranking_runs_in_flight",
			Help: "Ranking runs currently scoring candidates",
		},
	)
	RankDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranking_run_duration_seconds",
			Help:    "Wall time of a ranking run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_decisions_total",
			Help: "Decisions issued by source (rank or reevaluate)",
		},
		[]string{"source", "decision"},
	)
	OverallScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_overall_score",
			Help:    "Distribution of overall match score ([0,100])",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
	ConfidenceHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_confidence",
			Help:    "Distribution of decision confidence ([0,1])",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 1.0},
		},
	)
	RequirementsCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requirements_cache_total",
			Help: "Requirements cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events produced to the broker by topic and status",
		},
		[]string{"topic", "status"},
	)
)

var registerOnce sync.Once

// InitMetrics registers collectors with the default registry. Repeated calls are no-ops.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AnswerEvalRequestsTotal,
			AnswerEvalDuration,
			RankRunsTotal,
			RankRunsInFlight,
			RankDuration,
			DecisionsTotal,
			OverallScoreHistogram,
			ConfidenceHistogram,
			RequirementsCacheTotal,
			EventsPublishedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// route pattern keeps label cardinality bounded
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// StartRank marks a run in flight and returns a func that records its outcome.
func StartRank(trigger string) func(err error) {
	start := time.Now()
	RankRunsInFlight.Inc()
	return func(err error) {
		RankRunsInFlight.Dec()
		status := "ok"
		if err != nil {
			status = "error"
		}
		RankRunsTotal.WithLabelValues(trigger, status).Inc()
		RankDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveCandidate records the score and decision of one ranked candidate.
func ObserveCandidate(s domain.ScoreBreakdown, a domain.AgentAnalysis) {
	OverallScoreHistogram.Observe(s.Overall)
	ConfidenceHistogram.Observe(a.Confidence)
	DecisionsTotal.WithLabelValues("rank", string(a.Decision)).Inc()
}

// ObserveReevaluation records a decision produced after a Q&A round.
func ObserveReevaluation(a domain.AgentAnalysis) {
	ConfidenceHistogram.Observe(a.Confidence)
	DecisionsTotal.WithLabelValues("reevaluate", string(a.Decision)).Inc()
}

// ObserveAnswerEval records one evaluator call.
func ObserveAnswerEval(evaluator, outcome string, d time.Duration) {
	AnswerEvalRequestsTotal.WithLabelValues(evaluator, outcome).Inc()
	AnswerEvalDuration.WithLabelValues(evaluator).Observe(d.Seconds())
}

func CacheLookup(result string) { RequirementsCacheTotal.WithLabelValues(result).Inc() }

func EventPublished(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

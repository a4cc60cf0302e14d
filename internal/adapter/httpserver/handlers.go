package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-candidate-screener/internal/config"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/usecase"
	"github.com/fairyhunter13/ai-candidate-screener/pkg/textx"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Rank       usecase.RankService
	Enqueue    usecase.EnqueueService
	Query      usecase.QueryService
	Reevaluate usecase.ReevaluateService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	QueueCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, rank usecase.RankService, enqueue usecase.EnqueueService, query usecase.QueryService, reevaluate usecase.ReevaluateService, dbCheck, redisCheck, queueCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:        cfg,
		Rank:       rank,
		Enqueue:    enqueue,
		Query:      query,
		Reevaluate: reevaluate,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
		QueueCheck: queueCheck,
	}
}

type rankRequest struct {
	JobID          string                    `json:"job_id" validate:"omitempty,max=100"`
	JobDescription string                    `json:"job_description" validate:"required,max=50000"`
	Candidates     []domain.CandidateProfile `json:"candidates"`
	TopN           int                       `json:"top_n" validate:"gte=0"`
}

type reevaluateRequest struct {
	Questions []string `json:"questions" validate:"max=20,dive,max=2000"`
	Answers   []string `json:"answers" validate:"max=20,dive,max=5000"`
}

type requirementsRequest struct {
	JobDescription string `json:"job_description" validate:"required,max=50000"`
}

type rankedView struct {
	Rank int `json:"rank"`
	domain.RankedCandidate
}

type rankingResponse struct {
	JobID        string                 `json:"job_id"`
	RunID        string                 `json:"run_id"`
	Version      int64                  `json:"version"`
	Requirements domain.JobRequirements `json:"requirements"`
	Summary      domain.DecisionSummary `json:"summary"`
	Candidates   []rankedView           `json:"candidates"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// buildRankingResponse numbers candidates from 1 and drops the echoed job text.
func buildRankingResponse(r domain.CandidateRanking) rankingResponse {
	req := r.Requirements
	req.RawText = ""
	out := rankingResponse{
		JobID:        r.JobID,
		RunID:        r.RunID,
		Version:      r.Version,
		Requirements: req,
		Summary:      r.Summary(),
		Candidates:   make([]rankedView, 0, len(r.Candidates)),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	for i, c := range r.Candidates {
		out.Candidates = append(out.Candidates, rankedView{Rank: i + 1, RankedCandidate: c})
	}
	return out
}

func (s *Server) maxBody() int64 {
	mb := s.Cfg.MaxBodyMB
	if mb <= 0 {
		mb = 5
	}
	return mb << 20
}

// acceptsJSON rejects requests that cannot take a JSON response.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || strings.Contains(a, "*/*") || strings.Contains(a, "application/json") {
		return true
	}
	writeError(w, r, fmt.Errorf("%w: only application/json is served here", errNotAcceptable), map[string]string{"accept": a})
	return false
}

// readBody reads the capped request body, mapping the cap to errPayloadTooLarge.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	b, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errPayloadTooLarge, mbe.Limit)
		}
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrInvalidArgument, err)
	}
	return b, nil
}

// decodeJSON reads and validates a JSON body into dst, writing the error
// response itself when it returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	b, err := s.readBody(w, r)
	if err != nil {
		writeError(w, r, err, nil)
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
		return false
	}
	return true
}

func (s *Server) decodeRankRequest(w http.ResponseWriter, r *http.Request) (rankRequest, bool) {
	var req rankRequest
	if !s.decodeJSON(w, r, &req) {
		return req, false
	}
	req.JobDescription = textx.SanitizeText(req.JobDescription)
	if req.JobID != "" {
		if res := ValidateJobID(req.JobID); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, res.Errors[0].Message), resultDetails(res))
			return req, false
		}
	}
	return req, true
}

// RankHandler ranks candidates synchronously and returns the stored ranking.
func (s *Server) RankHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		req, ok := s.decodeRankRequest(w, r)
		if !ok {
			return
		}
		ranking, err := s.Rank.Rank(r.Context(), req.JobID, req.JobDescription, req.Candidates, usecase.RankOptions{
			TopN:    req.TopN,
			Trigger: usecase.TriggerHTTP,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("rank: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, buildRankingResponse(ranking))
	}
}

// EnqueueRankHandler queues a rank request for the worker.
func (s *Server) EnqueueRankHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		req, ok := s.decodeRankRequest(w, r)
		if !ok {
			return
		}
		jobID, err := s.Enqueue.Enqueue(r.Context(), req.JobID, req.JobDescription, req.Candidates)
		if err != nil {
			writeError(w, r, fmt.Errorf("enqueue: %w", err), nil)
			return
		}
		w.Header().Set("Location", "/v1/rankings/"+jobID)
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "queued"})
	}
}

// GetRankingHandler returns the stored ranking as JSON, or as the plain text
// report when the client asks for text/plain.
func (s *Server) GetRankingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		if res := ValidateJobID(jobID); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, res.Errors[0].Message), resultDetails(res))
			return
		}
		topN, res := ValidateTopN(r.URL.Query().Get("top_n"))
		if !res.Valid {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, res.Errors[0].Message), resultDetails(res))
			return
		}
		if wantsText(r.Header.Get("Accept")) {
			text, err := s.Query.Report(r.Context(), jobID, topN)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			writeText(w, http.StatusOK, text)
			return
		}
		if !acceptsJSON(w, r) {
			return
		}
		ranking, err := s.Query.Get(r.Context(), jobID, topN)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, buildRankingResponse(ranking))
	}
}

// wantsText reports whether text/plain is preferred over JSON in an Accept header.
func wantsText(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "text/plain":
			return true
		case "application/json", "*/*":
			return false
		}
	}
	return false
}

// ReevaluateHandler applies a Q&A round to a candidate awaiting questions.
func (s *Server) ReevaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		jobID := chi.URLParam(r, "jobID")
		if res := ValidateJobID(jobID); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, res.Errors[0].Message), resultDetails(res))
			return
		}
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: bad email escape", domain.ErrInvalidArgument), nil)
			return
		}
		if res := ValidateEmail(email); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, res.Errors[0].Message), resultDetails(res))
			return
		}
		var req reevaluateRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		analysis, err := s.Reevaluate.Reevaluate(r.Context(), jobID, email, textx.SanitizeAll(req.Questions), textx.SanitizeAll(req.Answers))
		if err != nil {
			writeError(w, r, fmt.Errorf("reevaluate: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "email": email, "analysis": analysis})
	}
}

// RequirementsHandler extracts requirements from a job description without
// ranking. JSON bodies carry job_description; any other body must sniff as text.
func (s *Server) RequirementsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		var text string
		if ct == "application/json" {
			var req requirementsRequest
			if !s.decodeJSON(w, r, &req) {
				return
			}
			text = req.JobDescription
		} else {
			b, err := s.readBody(w, r)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			if m := mimetype.Detect(b); !isText(m) {
				writeError(w, r, fmt.Errorf("%w: job description must be text", errUnsupportedMedia), map[string]string{"mime": m.String()})
				return
			}
			text = string(b)
		}
		text = textx.SanitizeText(text)
		if text == "" {
			writeError(w, r, fmt.Errorf("%w: job description required", domain.ErrInvalidArgument), nil)
			return
		}
		req := s.Rank.Requirements(r.Context(), text)
		req.RawText = ""
		writeJSON(w, http.StatusOK, req)
	}
}

// isText walks the mimetype hierarchy; JSON, CSV and HTML all descend from text/plain.
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// ReadyzHandler probes the database, Redis and the broker.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"kafka", s.QueueCheck},
		}
		checks := make([]check, 0, len(probes))
		st := http.StatusOK
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, Details: err.Error()})
				st = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// HealthzHandler reports liveness only.
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

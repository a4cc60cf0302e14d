// Package usecase orchestrates the screening engine with storage, caching and
// event publication.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	obs "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/ats"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/brain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/extractor"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/scorer"
)

// Triggers label ranking runs in metrics.
const (
	TriggerHTTP  = "http"
	TriggerQueue = "queue"
)

// RankOptions tune a single Rank call.
type RankOptions struct {
	// TopN truncates the returned ranking; storage always keeps every candidate.
	TopN    int
	Trigger string
	// RunID pins the run id; empty generates one.
	RunID   string
}

// RankService extracts requirements, scores every candidate in parallel and
// replaces the stored ranking for the job.
type RankService struct {
	Extractor     *extractor.Extractor
	Scorer        *scorer.Scorer
	Cache         domain.RequirementsCache
	Rankings      domain.RankingRepository
	Events        domain.EventPublisher
	Workers       int
	MaxCandidates int
	Now           func() time.Time
}

// NewRankService constructs a RankService. cache and events may be nil.
func NewRankService(ex *extractor.Extractor, sc *scorer.Scorer, cache domain.RequirementsCache, rankings domain.RankingRepository, events domain.EventPublisher, workers, maxCandidates int) RankService {
	return RankService{
		Extractor:     ex,
		Scorer:        sc,
		Cache:         cache,
		Rankings:      rankings,
		Events:        events,
		Workers:       workers,
		MaxCandidates: maxCandidates,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Requirements returns the extracted requirements for jobText, consulting the
// cache first. Cache failures never block extraction.
func (s RankService) Requirements(ctx domain.Context, jobText string) domain.JobRequirements {
	lg := observability.LoggerFromContext(ctx)
	if s.Cache != nil {
		req, ok, err := s.Cache.Get(ctx, jobText)
		switch {
		case err != nil:
			obs.CacheLookup("error")
			lg.Warn("requirements cache get failed", slog.Any("error", err))
		case ok:
			obs.CacheLookup("hit")
			return req
		default:
			obs.CacheLookup("miss")
		}
	}
	req := s.Extractor.Parse(jobText)
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, jobText, req); err != nil {
			lg.Warn("requirements cache set failed", slog.Any("error", err))
		}
	}
	return req
}

// Rank scores candidates against jobText and stores the result as the new
// ranking for jobID. An empty jobID gets a generated one.
func (s RankService) Rank(ctx domain.Context, jobID, jobText string, candidates []domain.CandidateProfile, opts RankOptions) (out domain.CandidateRanking, err error) {
	if err := ValidateRankInput(jobText, candidates, s.MaxCandidates); err != nil {
		return domain.CandidateRanking{}, err
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}
	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerHTTP
	}
	done := obs.StartRank(trigger)
	defer func() { done(err) }()

	ctx, span := otel.Tracer("usecase").Start(ctx, "RankService.Rank")
	defer span.End()
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("job.id", jobID),
		attribute.String("run.id", runID),
		attribute.Int("candidates", len(candidates)),
	)
	ctx = observability.ContextWithAttrs(ctx, slog.String("job_id", jobID), slog.String("run_id", runID))
	lg := observability.LoggerFromContext(ctx)

	req := s.Requirements(ctx, jobText)
	ranked, err := s.scoreAll(ctx, req, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring aborted")
		return domain.CandidateRanking{}, fmt.Errorf("op=rank.score: %w", err)
	}

	now := s.now()
	saved, err := s.Rankings.Save(ctx, domain.CandidateRanking{
		JobID:        jobID,
		RunID:        runID,
		Requirements: req,
		Candidates:   ranked,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return domain.CandidateRanking{}, err
	}

	for _, c := range saved.Candidates {
		obs.ObserveCandidate(c.Score, c.Analysis)
	}
	summary := saved.Summary()
	lg.Info("ranking completed",
		slog.String("job_title", req.Title),
		slog.Int("candidates", len(saved.Candidates)),
		slog.Int("shortlisted", summary.Shortlisted),
		slog.Int("needs_questions", summary.NeedsQuestions),
		slog.Int("rejected", summary.Rejected))

	if s.Events != nil {
		ev := domain.RankingCompletedEvent{
			JobID:      saved.JobID,
			RunID:      saved.RunID,
			JobTitle:   req.Title,
			Candidates: len(saved.Candidates),
			Summary:    summary,
			OccurredAt: now,
		}
		if len(saved.Candidates) > 0 {
			ev.TopCandidate = saved.Candidates[0].Profile.Contact.Email
		}
		if perr := s.Events.PublishRankingCompleted(ctx, ev); perr != nil {
			lg.Error("publish ranking.completed failed", slog.Any("error", perr))
		}
	}
	return saved.Top(opts.TopN), nil
}

// scoreAll is a parallel map over candidates followed by a stable sort on
// overall score, so ties keep input order.
func (s RankService) scoreAll(ctx domain.Context, req domain.JobRequirements, candidates []domain.CandidateProfile) ([]domain.RankedCandidate, error) {
	b := brain.New(req, s.Scorer.Matcher())
	out := make([]domain.RankedCandidate, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, p := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score := s.Scorer.Score(p, req)
			out[i] = domain.RankedCandidate{
				Profile:  p,
				Score:    score,
				Analysis: b.Analyze(p, score),
				ATS:      ats.Validate(p),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score.Overall > out[j].Score.Overall })
	return out, nil
}

func (s RankService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ValidateRankInput rejects blank job text, oversized batches and duplicate
// candidate emails, which would make re-evaluation ambiguous.
func ValidateRankInput(jobText string, candidates []domain.CandidateProfile, maxCandidates int) error {
	if strings.TrimSpace(jobText) == "" {
		return fmt.Errorf("%w: job description required", domain.ErrInvalidArgument)
	}
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		return fmt.Errorf("%w: %d candidates exceeds limit of %d", domain.ErrInvalidArgument, len(candidates), maxCandidates)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		email := strings.ToLower(strings.TrimSpace(c.Contact.Email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			return fmt.Errorf("%w: duplicate candidate email %s", domain.ErrInvalidArgument, email)
		}
		seen[email] = struct{}{}
	}
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

// HandleRank runs a queued rank request.
func (s RankService) HandleRank(ctx domain.Context, p domain.RankTaskPayload) error {
	_, err := s.Rank(ctx, p.JobID, p.JobDescription, p.Candidates, RankOptions{Trigger: TriggerQueue, RunID: p.RunID})
	return err
}

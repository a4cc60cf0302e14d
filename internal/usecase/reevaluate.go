package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	obs "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/reeval"
)

// ReevaluateService applies a Q&A round to one candidate of a stored ranking.
type ReevaluateService struct {
	Rankings domain.RankingRepository
	Loop     *reeval.Loop
	Events   domain.EventPublisher
	Now      func() time.Time
}

// NewReevaluateService constructs a ReevaluateService. events may be nil.
func NewReevaluateService(rankings domain.RankingRepository, loop *reeval.Loop, events domain.EventPublisher) ReevaluateService {
	return ReevaluateService{Rankings: rankings, Loop: loop, Events: events, Now: func() time.Time { return time.Now().UTC() }}
}

// Reevaluate revises the analysis of the candidate identified by email and
// stores the updated ranking. Only candidates in ASK_QUESTIONS qualify. The
// ranking is saved against the version that was read, so a concurrent rank
// or re-evaluation of the same job yields ErrConflict instead of a lost update.
func (s ReevaluateService) Reevaluate(ctx domain.Context, jobID, email string, questions, answers []string) (domain.AgentAnalysis, error) {
	if strings.TrimSpace(jobID) == "" || strings.TrimSpace(email) == "" {
		return domain.AgentAnalysis{}, fmt.Errorf("%w: job id and email required", domain.ErrInvalidArgument)
	}
	ctx, span := otel.Tracer("usecase").Start(ctx, "ReevaluateService.Reevaluate")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID), attribute.Int("answers", len(answers)))
	ctx = observability.ContextWithAttrs(ctx, slog.String("job_id", jobID))
	lg := observability.LoggerFromContext(ctx)

	r, err := s.Rankings.Get(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return domain.AgentAnalysis{}, fmt.Errorf("%w: no ranking for job %s", domain.ErrNotFound, jobID)
		}
		return domain.AgentAnalysis{}, err
	}
	idx := r.IndexOf(email)
	if idx < 0 {
		return domain.AgentAnalysis{}, fmt.Errorf("%w: candidate %s not in ranking", domain.ErrNotFound, email)
	}
	c := r.Candidates[idx]
	if c.Analysis.Decision != domain.DecisionAskQuestions {
		return domain.AgentAnalysis{}, fmt.Errorf("%w: candidate decision is %s, only %s can be re-evaluated",
			domain.ErrInvalidArgument, c.Analysis.Decision, domain.DecisionAskQuestions)
	}

	next := s.Loop.Reevaluate(ctx, reeval.Input{
		JobID:        jobID,
		Analysis:     c.Analysis,
		Questions:    questions,
		Answers:      answers,
		Requirements: r.Requirements,
		Profile:      c.Profile,
	})

	// the stored ranking is replaced wholesale, never patched in place
	updated := r
	updated.Candidates = append([]domain.RankedCandidate(nil), r.Candidates...)
	updated.Candidates[idx].Analysis = next
	updated.UpdatedAt = s.now()
	if _, err := s.Rankings.Save(ctx, updated, r.Version); err != nil {
		return domain.AgentAnalysis{}, err
	}
	obs.ObserveReevaluation(next)
	lg.Info("candidate re-evaluated",
		slog.String("email", c.Profile.Contact.Email),
		slog.Float64("old_confidence", c.Analysis.Confidence),
		slog.Float64("new_confidence", next.Confidence),
		slog.String("decision", string(next.Decision)))

	if s.Events != nil {
		ev := domain.CandidateReevaluatedEvent{
			JobID:         jobID,
			Email:         c.Profile.Contact.Email,
			OldConfidence: c.Analysis.Confidence,
			NewConfidence: next.Confidence,
			OldDecision:   c.Analysis.Decision,
			NewDecision:   next.Decision,
			OccurredAt:    updated.UpdatedAt,
		}
		if perr := s.Events.PublishCandidateReevaluated(ctx, ev); perr != nil {
			lg.Error("publish candidate.reevaluated failed", slog.Any("error", perr))
		}
	}
	return next, nil
}

func (s ReevaluateService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

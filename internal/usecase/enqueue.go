package usecase

import (
	"fmt"

	"github.com/google/uuid"

	obs "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
)

// EnqueueService hands rank requests to the worker pool.
type EnqueueService struct {
	Queue         domain.Queue
	MaxCandidates int
}

// NewEnqueueService constructs an EnqueueService.
func NewEnqueueService(q domain.Queue, maxCandidates int) EnqueueService {
	return EnqueueService{Queue: q, MaxCandidates: maxCandidates}
}

// Enqueue validates the request and publishes it. It returns the job id the
// ranking will be stored under.
func (s EnqueueService) Enqueue(ctx domain.Context, jobID, jobText string, candidates []domain.CandidateProfile) (string, error) {
	if err := ValidateRankInput(jobText, candidates, s.MaxCandidates); err != nil {
		return "", err
	}
	if s.Queue == nil {
		return "", fmt.Errorf("op=usecase.Enqueue: %w: queue not configured", domain.ErrInternal)
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}
	payload := domain.RankTaskPayload{
		JobID:          jobID,
		JobDescription: jobText,
		Candidates:     candidates,
		RequestID:      observability.RequestIDFromContext(ctx),
		RunID:          uuid.NewString(),
	}
	if _, err := s.Queue.EnqueueRank(ctx, payload); err != nil {
		obs.RankRunsTotal.WithLabelValues(TriggerQueue, "enqueue_failed").Inc()
		return "", err
	}
	return jobID, nil
}

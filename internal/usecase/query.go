package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/report"
)

// QueryService reads stored rankings.
type QueryService struct {
	Rankings domain.RankingRepository
}

// NewQueryService constructs a QueryService.
func NewQueryService(r domain.RankingRepository) QueryService { return QueryService{Rankings: r} }

// Get returns the stored ranking limited to topN candidates (topN <= 0 keeps all).
func (s QueryService) Get(ctx domain.Context, jobID string, topN int) (domain.CandidateRanking, error) {
	if strings.TrimSpace(jobID) == "" {
		return domain.CandidateRanking{}, fmt.Errorf("%w: job id required", domain.ErrInvalidArgument)
	}
	r, err := s.Rankings.Get(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return domain.CandidateRanking{}, fmt.Errorf("%w: no ranking for job %s", domain.ErrNotFound, jobID)
		}
		return domain.CandidateRanking{}, err
	}
	return r.Top(topN), nil
}

// Report renders the stored ranking as plain text.
func (s QueryService) Report(ctx domain.Context, jobID string, topN int) (string, error) {
	r, err := s.Get(ctx, jobID, topN)
	if err != nil {
		return "", err
	}
	return report.Render(r)
}

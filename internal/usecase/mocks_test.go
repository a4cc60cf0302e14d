package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

type rankingRepoMock struct{ mock.Mock }

// Save returns the ranking it was given with Version bumped unless the
// expectation supplies an explicit result.
func (m *rankingRepoMock) Save(ctx context.Context, r domain.CandidateRanking, expected int64) (domain.CandidateRanking, error) {
	args := m.Called(ctx, r, expected)
	if out, ok := args.Get(0).(domain.CandidateRanking); ok {
		return out, args.Error(1)
	}
	r.Version = expected + 1
	return r, args.Error(1)
}

func (m *rankingRepoMock) Get(ctx context.Context, jobID string) (domain.CandidateRanking, error) {
	args := m.Called(ctx, jobID)
	r, _ := args.Get(0).(domain.CandidateRanking)
	return r, args.Error(1)
}

type cacheMock struct{ mock.Mock }

func (m *cacheMock) Get(ctx context.Context, jobText string) (domain.JobRequirements, bool, error) {
	args := m.Called(ctx, jobText)
	r, _ := args.Get(0).(domain.JobRequirements)
	return r, args.Bool(1), args.Error(2)
}

func (m *cacheMock) Set(ctx context.Context, jobText string, req domain.JobRequirements) error {
	return m.Called(ctx, jobText, req).Error(0)
}

type publisherMock struct{ mock.Mock }

func (m *publisherMock) PublishRankingCompleted(ctx context.Context, ev domain.RankingCompletedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *publisherMock) PublishCandidateReevaluated(ctx context.Context, ev domain.CandidateReevaluatedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type queueMock struct{ mock.Mock }

func (m *queueMock) EnqueueRank(ctx context.Context, p domain.RankTaskPayload) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type evaluatorMock struct{ mock.Mock }

func (m *evaluatorMock) EvaluateAnswers(ctx context.Context, req domain.EvaluationRequest) (float64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(float64), args.Error(1)
}

func profile(email string, years float64, skills ...string) domain.CandidateProfile {
	return domain.CandidateProfile{
		Contact:              domain.Contact{Name: email, Email: email, Phone: "555-0100"},
		Skills:               domain.SkillSet{"general": skills},
		Experience:           []domain.ExperienceEntry{{Title: "Engineer", Company: "Acme", Years: domain.Years(years)}},
		Education:            []domain.EducationEntry{{Degree: "Bachelor of Science"}},
		TotalExperienceYears: domain.Years(years),
	}
}

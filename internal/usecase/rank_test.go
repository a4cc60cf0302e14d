package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/extractor"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/scorer"
	"github.com/fairyhunter13/ai-candidate-screener/internal/usecase"
)

const jobText = "Backend Engineer\nRequirements:\n- Python and AWS\n- 3+ years of experience"

var cachedReq = domain.JobRequirements{
	Title:           "Backend Engineer",
	MinExperience:   3,
	RequiredSkills:  []string{"python", "aws"},
	PreferredSkills: []string{"docker"},
	EducationFloor:  domain.EducationBachelor,
}

func newRankService(cache domain.RequirementsCache, repo domain.RankingRepository, events domain.EventPublisher) usecase.RankService {
	svc := usecase.NewRankService(extractor.New(nil), scorer.New(nil), cache, repo, events, 4, 10)
	svc.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func TestRank_SortsSavesAndPublishes(t *testing.T) {
	t.Parallel()
	cache := &cacheMock{}
	repo := &rankingRepoMock{}
	events := &publisherMock{}
	cache.On("Get", mock.Anything, jobText).Return(cachedReq, true, nil).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r domain.CandidateRanking) bool {
		return r.JobID == "job-1" && r.RunID != "" && len(r.Candidates) == 3 && r.Requirements.Title == "Backend Engineer"
	}), int64(0)).Return(nil, nil).Once()
	events.On("PublishRankingCompleted", mock.Anything, mock.MatchedBy(func(ev domain.RankingCompletedEvent) bool {
		return ev.JobID == "job-1" && ev.Candidates == 3 && ev.TopCandidate == "strong@x.io" &&
			ev.Summary.Shortlisted+ev.Summary.NeedsQuestions+ev.Summary.Rejected == 3
	})).Return(nil).Once()

	svc := newRankService(cache, repo, events)
	got, err := svc.Rank(context.Background(), "job-1", jobText, []domain.CandidateProfile{
		profile("weak@x.io", 0),
		profile("strong@x.io", 6, "python", "aws", "docker"),
		profile("mid@x.io", 3, "python"),
	}, usecase.RankOptions{})
	require.NoError(t, err)

	require.Len(t, got.Candidates, 3)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, []string{"strong@x.io", "mid@x.io", "weak@x.io"}, emails(got))
	for i := 1; i < len(got.Candidates); i++ {
		assert.GreaterOrEqual(t, got.Candidates[i-1].Score.Overall, got.Candidates[i].Score.Overall)
	}
	assert.Equal(t, domain.DecisionAutoShortlist, got.Candidates[0].Analysis.Decision)
	assert.Equal(t, 85, got.Candidates[0].ATS.Score, "three skills trip the skills-section check")
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got.CreatedAt)
	cache.AssertExpectations(t)
	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRank_TiesKeepInputOrderAndTopN(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	repo.On("Save", mock.Anything, mock.Anything, int64(0)).Return(nil, nil)
	svc := newRankService(nil, repo, nil)

	var in []domain.CandidateProfile
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"} {
		in = append(in, profile(e, 2, "python"))
	}
	got, err := svc.Rank(context.Background(), "job-t", jobText, in, usecase.RankOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"}, emails(got))

	top, err := svc.Rank(context.Background(), "job-t", jobText, in, usecase.RankOptions{TopN: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, emails(top))
	saved := repo.Calls[len(repo.Calls)-1].Arguments.Get(1).(domain.CandidateRanking)
	assert.Len(t, saved.Candidates, 5, "storage keeps the full ranking")
}

func TestRank_GeneratesJobIDAndHandlesEmptyBatch(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	repo.On("Save", mock.Anything, mock.Anything, int64(0)).Return(nil, nil).Once()
	got, err := newRankService(nil, repo, nil).Rank(context.Background(), "", jobText, nil, usecase.RankOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, got.JobID)
	assert.Empty(t, got.Candidates)
	assert.Equal(t, domain.DecisionSummary{}, got.Summary())
}

func TestRank_CacheMissAndErrorFallBackToExtractor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		getErr error
	}{
		{"miss", nil},
		{"error", errors.New("redis down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cache := &cacheMock{}
			cache.On("Get", mock.Anything, jobText).Return(nil, false, tt.getErr).Once()
			cache.On("Set", mock.Anything, jobText, mock.MatchedBy(func(r domain.JobRequirements) bool {
				return r.MinExperience == 3 && len(r.RequiredSkills) > 0
			})).Return(errors.New("set failed")).Once()
			repo := &rankingRepoMock{}
			repo.On("Save", mock.Anything, mock.Anything, int64(0)).Return(nil, nil).Once()

			got, err := newRankService(cache, repo, nil).Rank(context.Background(), "j", jobText,
				[]domain.CandidateProfile{profile("a@x.io", 4, "python", "aws")}, usecase.RankOptions{})
			require.NoError(t, err)
			assert.Contains(t, got.Requirements.RequiredSkills, "python")
			assert.Contains(t, got.Requirements.RequiredSkills, "aws")
			cache.AssertExpectations(t)
		})
	}
}

func TestRank_InvalidInput(t *testing.T) {
	t.Parallel()
	many := make([]domain.CandidateProfile, 11)
	tests := []struct {
		name       string
		text       string
		candidates []domain.CandidateProfile
	}{
		{"blank_text", "   ", nil},
		{"too_many", jobText, many},
		{"duplicate_email", jobText, []domain.CandidateProfile{profile("A@x.io", 1), profile(" a@x.io ", 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := &rankingRepoMock{}
			_, err := newRankService(nil, repo, nil).Rank(context.Background(), "j", tt.text, tt.candidates, usecase.RankOptions{})
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRank_SaveErrorSkipsPublish(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	events := &publisherMock{}
	repo.On("Save", mock.Anything, mock.Anything, int64(0)).Return(domain.CandidateRanking{}, errors.New("op=ranking.save: boom")).Once()
	_, err := newRankService(nil, repo, events).Rank(context.Background(), "j", jobText,
		[]domain.CandidateProfile{profile("a@x.io", 1)}, usecase.RankOptions{})
	require.Error(t, err)
	events.AssertNotCalled(t, "PublishRankingCompleted", mock.Anything, mock.Anything)
}

func TestRank_PublishErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	events := &publisherMock{}
	repo.On("Save", mock.Anything, mock.Anything, int64(0)).Return(nil, nil).Once()
	events.On("PublishRankingCompleted", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	got, err := newRankService(nil, repo, events).Rank(context.Background(), "j", jobText,
		[]domain.CandidateProfile{profile("a@x.io", 1)}, usecase.RankOptions{Trigger: usecase.TriggerQueue})
	require.NoError(t, err)
	assert.Len(t, got.Candidates, 1)
}

func TestRank_CancelledContext(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRankService(nil, repo, nil).Rank(ctx, "j", jobText,
		[]domain.CandidateProfile{profile("a@x.io", 1)}, usecase.RankOptions{})
	require.ErrorIs(t, err, context.Canceled)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func emails(r domain.CandidateRanking) []string {
	out := make([]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		out = append(out, c.Profile.Contact.Email)
	}
	return out
}

func TestHandleRank_RunsQueuedPayload(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r domain.CandidateRanking) bool {
		return r.JobID == "queued-1" && len(r.Candidates) == 2
	}), int64(0)).Return(nil, nil).Once()

	err := newRankService(nil, repo, nil).HandleRank(context.Background(), domain.RankTaskPayload{
		JobID:          "queued-1",
		JobDescription: jobText,
		Candidates:     []domain.CandidateProfile{profile("a@x.io", 1), profile("b@x.io", 4, "python")},
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)

	err = newRankService(nil, &rankingRepoMock{}, nil).HandleRank(context.Background(), domain.RankTaskPayload{JobID: "q"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestHandleRank_RedeliveryKeepsRunID(t *testing.T) {
	t.Parallel()
	repo := &rankingRepoMock{}
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r domain.CandidateRanking) bool {
		return r.JobID == "queued-2" && r.RunID == "run-fixed"
	}), int64(0)).Return(nil, nil).Twice()
	events := &publisherMock{}
	events.On("PublishRankingCompleted", mock.Anything, mock.MatchedBy(func(ev domain.RankingCompletedEvent) bool {
		return ev.JobID == "queued-2" && ev.RunID == "run-fixed"
	})).Return(nil).Twice()

	svc := newRankService(nil, repo, events)
	payload := domain.RankTaskPayload{
		JobID:          "queued-2",
		JobDescription: jobText,
		Candidates:     []domain.CandidateProfile{profile("a@x.io", 4, "python", "aws")},
		RunID:          "run-fixed",
	}
	require.NoError(t, svc.HandleRank(context.Background(), payload))
	require.NoError(t, svc.HandleRank(context.Background(), payload))
	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

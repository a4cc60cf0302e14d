//go:build integration

// Package integration runs the storage adapters against real Postgres and
// Redis containers. Run with: go test -tags integration ./internal/integration/...
package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	rediscache "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/cache/redis"
	"github.com/fairyhunter13/ai-candidate-screener/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, p.Port())
}

func ranking(jobID string, updated time.Time, emails ...string) domain.CandidateRanking {
	rk := domain.CandidateRanking{
		JobID:        jobID,
		RunID:        "run-" + jobID,
		Requirements: domain.JobRequirements{Title: "Platform Engineer", RequiredSkills: []string{"go"}, MinExperience: 2},
		CreatedAt:    updated,
		UpdatedAt:    updated,
	}
	for i, e := range emails {
		rk.Candidates = append(rk.Candidates, domain.RankedCandidate{
			Profile:  domain.CandidateProfile{Contact: domain.Contact{Email: e}, TotalExperienceYears: domain.Years(i + 1)},
			Score:    domain.ScoreBreakdown{Overall: 90 - float64(i*10)},
			Analysis: domain.AgentAnalysis{Decision: domain.DecisionAskQuestions, Confidence: 0.6, ConfidenceLevel: domain.ConfidenceMedium},
		})
	}
	return rk
}

func TestRankingRepo_Postgres(t *testing.T) {
	ctx := context.Background()
	addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}, "5432")

	pool, err := postgres.NewPool(ctx, "postgres://postgres:postgres@"+addr+"/app?sslmode=disable", postgres.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	require.NoError(t, postgres.EnsureSchema(ctx, pool), "schema setup is idempotent")

	repo := postgres.NewRankingRepo(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	saved, err := repo.Save(ctx, ranking("job-1", now, "a@x.io", "b@x.io"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	got, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "a@x.io", got.Candidates[0].Profile.Contact.Email)
	assert.Equal(t, []string{"go"}, got.Requirements.RequiredSkills)
	assert.Equal(t, domain.DecisionAskQuestions, got.Candidates[1].Analysis.Decision)

	// a full replace drops candidates missing from the new run
	saved, err = repo.Save(ctx, ranking("job-1", now, "c@x.io"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)
	got, err = repo.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "c@x.io", got.Candidates[0].Profile.Contact.Email)

	_, err = repo.Save(ctx, ranking("job-1", now, "d@x.io"), 1)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Save(ctx, ranking("job-old", now.AddDate(-1, 0, 0), "e@x.io"), 0)
	require.NoError(t, err)
	n, err := postgres.NewCleanupService(pool, 30).CleanupOldData(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.Get(ctx, "job-old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.Get(ctx, "job-1")
	assert.NoError(t, err)
}

func TestRequirementsCache_Redis(t *testing.T) {
	ctx := context.Background()
	addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	cache := rediscache.NewRequirementsCache(rdb, "v1", time.Minute)
	text := "Required: Go, Kafka"
	_, ok, err := cache.Get(ctx, text)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, text, domain.JobRequirements{RequiredSkills: []string{"go", "kafka"}, RawText: text}))
	got, ok, err := cache.Get(ctx, text)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"go", "kafka"}, got.RequiredSkills)

	_, ok, err = rediscache.NewRequirementsCache(rdb, "v2", time.Minute).Get(ctx, text)
	require.NoError(t, err)
	assert.False(t, ok, "catalog version bump invalidates entries")
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

func newCache(t *testing.T, version string) (*RequirementsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRequirementsCache(rdb, version, time.Hour), mr
}

func TestRequirementsCache_RoundTrip(t *testing.T) {
	t.Parallel()
	c, mr := newCache(t, "3")
	ctx := context.Background()
	jd := "Senior Go Engineer\nRequirements:\n- Go\n- Kafka"

	_, ok, err := c.Get(ctx, jd)
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.JobRequirements{
		Title:          "Senior Go Engineer",
		MinExperience:  4,
		RequiredSkills: []string{"go", "kafka"},
		EducationFloor: domain.EducationBachelor,
		RawText:        jd,
	}
	require.NoError(t, c.Set(ctx, jd, want))

	got, ok, err := c.Get(ctx, "  "+jd+"\n")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Senior Go Engineer", got.Title)
	assert.Equal(t, domain.EducationBachelor, got.EducationFloor)
	assert.Equal(t, []string{"go", "kafka"}, got.RequiredSkills)
	assert.Empty(t, got.RawText)

	assert.Equal(t, time.Hour, mr.TTL(c.Key(jd)))
}

func TestRequirementsCache_KeyIsVersioned(t *testing.T) {
	t.Parallel()
	a := NewRequirementsCache(nil, "1", 0)
	b := NewRequirementsCache(nil, "2", 0)
	assert.NotEqual(t, a.Key("job"), b.Key("job"))
	assert.Regexp(t, `^req:v1:[0-9a-f]{64}$`, a.Key("job"))
	assert.Equal(t, DefaultTTL, a.ttl)
}

func TestRequirementsCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()
	c, mr := newCache(t, "1")
	require.NoError(t, mr.Set(c.Key("jd"), "{not json"))

	_, ok, err := c.Get(context.Background(), "jd")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(c.Key("jd")))
}

func TestRequirementsCache_RedisDown(t *testing.T) {
	t.Parallel()
	c, mr := newCache(t, "1")
	mr.Close()

	_, _, err := c.Get(context.Background(), "jd")
	require.ErrorContains(t, err, "op=requirements_cache.get")
	err = c.Set(context.Background(), "jd", domain.JobRequirements{})
	require.ErrorContains(t, err, "op=requirements_cache.set")
}

// Package redis caches extracted job requirements in Redis.
package redis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

// DefaultTTL applies when the configured TTL is not positive.
const DefaultTTL = 24 * time.Hour

// RequirementsCache stores JSON-encoded requirements under
// req:v{catalogVersion}:{sha256(jobText)}. Changing the skill catalog version
// invalidates every entry without a flush.
type RequirementsCache struct {
	rdb     goredis.Cmdable
	version string
	ttl     time.Duration
}

// NewRequirementsCache returns a cache bound to a catalog version.
func NewRequirementsCache(rdb goredis.Cmdable, catalogVersion string, ttl time.Duration) *RequirementsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RequirementsCache{rdb: rdb, version: catalogVersion, ttl: ttl}
}

// Key returns the cache key for jobText. Surrounding whitespace is ignored.
func (c *RequirementsCache) Key(jobText string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(jobText)))
	return fmt.Sprintf("req:v%s:%s", c.version, hex.EncodeToString(sum[:]))
}

// Get returns (req, true, nil) on a hit and (zero, false, nil) on a miss. An
// undecodable entry is deleted and reported as a miss.
func (c *RequirementsCache) Get(ctx domain.Context, jobText string) (domain.JobRequirements, bool, error) {
	key := c.Key(jobText)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.JobRequirements{}, false, nil
	}
	if err != nil {
		return domain.JobRequirements{}, false, fmt.Errorf("op=requirements_cache.get: %w", err)
	}
	var req domain.JobRequirements
	if err := json.Unmarshal(raw, &req); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return domain.JobRequirements{}, false, nil
	}
	return req, true, nil
}

// Set stores req for jobText with the configured TTL. The raw job text is not
// persisted.
func (c *RequirementsCache) Set(ctx domain.Context, jobText string, req domain.JobRequirements) error {
	req.RawText = ""
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("op=requirements_cache.set: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(jobText), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=requirements_cache.set: %w", err)
	}
	return nil
}

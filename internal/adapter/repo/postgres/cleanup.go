package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService deletes rankings that have not been updated within the
// retention window. Entries go with their run via ON DELETE CASCADE.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService defaults the retention to 90 days.
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays, now: time.Now}
}

// CleanupOldData removes expired rankings and returns how many runs were deleted.
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.RetentionDays)
	tag, err := s.Pool.Exec(ctx, `DELETE FROM ranking_runs WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=ranking.cleanup: %w", err)
	}
	n := tag.RowsAffected()
	slog.Info("ranking cleanup completed", slog.Int64("deleted_runs", n), slog.Time("cutoff", cutoff))
	return n, nil
}

// RunPeriodic cleans up once immediately and then on every tick until ctx ends.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}

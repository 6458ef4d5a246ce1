package cache

import (
	"context"
	"time"

	"restokasa/backend/internal/domain"
)

// StatisticsCache holds computed X-reports keyed by shift id. Entries are
// short-lived and invalidated by every mutation that changes the numbers.
type StatisticsCache interface {
	Get(ctx context.Context, shiftID string) (*domain.ShiftStatistics, bool, error)
	Set(ctx context.Context, shiftID string, value *domain.ShiftStatistics, ttl time.Duration) error
	Invalidate(ctx context.Context, shiftID string) error
}

type NoopStatisticsCache struct{}

func (NoopStatisticsCache) Get(_ context.Context, _ string) (*domain.ShiftStatistics, bool, error) {
	return nil, false, nil
}

func (NoopStatisticsCache) Set(_ context.Context, _ string, _ *domain.ShiftStatistics, _ time.Duration) error {
	return nil
}

func (NoopStatisticsCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

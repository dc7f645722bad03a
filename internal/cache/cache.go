package cache

import (
	"context"
	"time"

	"bizu/backend/internal/domain"
)

// ReportCache holds computed analytics reports. Every write to sales, items,
// write-offs or products must call Invalidate.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.AnalyticsReport, bool, error)
	Set(ctx context.Context, key string, value *domain.AnalyticsReport, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.AnalyticsReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.AnalyticsReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}

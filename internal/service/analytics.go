package service

import (
	"context"

	"bizu/backend/internal/analytics"
	"bizu/backend/internal/domain"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/snapshot"
)

// Analytics returns the profit summary for period, served from the report
// cache while it is fresh. Cache errors degrade to a recompute.
func (s *Service) Analytics(ctx context.Context, sess domain.Session, rawPeriod string) (domain.AnalyticsReport, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.AnalyticsReport{}, err
	}
	period, err := analytics.ParsePeriod(rawPeriod)
	if err != nil {
		return domain.AnalyticsReport{}, invalid("%v", err)
	}

	now := s.now()
	key := string(period) + ":" + now.Format("2006-01-02")

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Log.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
	} else if ok && cached != nil {
		return *cached, nil
	}

	snap, err := s.loader.Load(ctx, snapshot.Want{Products: true, Sales: true, SaleItems: true, WriteOffs: true})
	if err != nil {
		return domain.AnalyticsReport{}, err
	}
	report := analytics.Compute(analytics.Input{
		Sales:     snap.Sales,
		SaleItems: snap.SaleItems,
		WriteOffs: snap.WriteOffs,
		Products:  snap.ProductByID,
	}, period, now)

	if err := s.cache.Set(ctx, key, &report, s.opts.CacheTTL); err != nil {
		logger.Log.Warn().Err(err).Str("key", key).Msg("analytics cache write failed")
	}
	return report, nil
}

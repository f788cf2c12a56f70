package redis

import (
	"context"
	"errors"

	"github.com/edupulse/student-insight-hub/internal/domain/cohort"
)

// ══════════════════════════════════════════════════════════════════════════════
// INSIGHT CACHE
// Memoizes cohort KPIs and alert scans keyed by the population snapshot
// version. A version bump makes every older entry unreachable; the TTL
// cleans those up. All failures degrade to a recompute, never an error.
// ══════════════════════════════════════════════════════════════════════════════

// insight kinds used in cache keys.
const (
	kindKPI    = "kpi"
	kindAlerts = "alerts"
)

// InsightCache adapts the generic cache to the query-layer memoization
// interfaces (query.KPICache, query.AlertCache, command.InsightInvalidator).
type InsightCache struct {
	cache *Cache
}

// NewInsightCache creates a new InsightCache.
func NewInsightCache(cache *Cache) *InsightCache {
	return &InsightCache{cache: cache}
}

// GetKPI returns memoized KPIs for the snapshot version, if present.
func (c *InsightCache) GetKPI(ctx context.Context, version uint64) (*cohort.KPIMetrics, bool) {
	var m cohort.KPIMetrics
	err := c.cache.Get(ctx, InsightKey(kindKPI, version), &m)
	if err != nil {
		return nil, false
	}
	return &m, true
}

// SetKPI memoizes KPIs for the snapshot version.
func (c *InsightCache) SetKPI(ctx context.Context, version uint64, m cohort.KPIMetrics) {
	_ = c.cache.Set(ctx, InsightKey(kindKPI, version), m, TTLInsight)
}

// GetAlerts returns a memoized alert scan for the snapshot version.
func (c *InsightCache) GetAlerts(ctx context.Context, version uint64) ([]cohort.Alert, bool) {
	var alerts []cohort.Alert
	err := c.cache.Get(ctx, InsightKey(kindAlerts, version), &alerts)
	if err != nil {
		return nil, false
	}
	return alerts, true
}

// SetAlerts memoizes an alert scan for the snapshot version.
func (c *InsightCache) SetAlerts(ctx context.Context, version uint64, alerts []cohort.Alert) {
	_ = c.cache.Set(ctx, InsightKey(kindAlerts, version), alerts, TTLInsight)
}

// InvalidateInsights drops every memoized insight. Called after ingest
// and rescore; the version keying already isolates stale entries, this
// just frees them eagerly.
func (c *InsightCache) InvalidateInsights(ctx context.Context) error {
	err := c.cache.DeleteByPattern(ctx, PrefixInsight+"*")
	if err != nil && !errors.Is(err, ErrCacheKeyEmpty) {
		return err
	}
	return nil
}

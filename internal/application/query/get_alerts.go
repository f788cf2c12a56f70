package query

import (
	"context"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/cohort"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ALERTS QUERY
// Runs the anomaly rules against the current snapshot. At most one alert
// per rule per scan; alert timestamps are the scan time.
// ══════════════════════════════════════════════════════════════════════════════

// GetAlertsQuery requests a cohort anomaly scan.
type GetAlertsQuery struct {
	// BypassCache forces a fresh scan even when a memoized result exists.
	BypassCache bool
}

// AlertCache memoizes scan results per snapshot version. Memoized alerts
// keep the timestamp of the scan that produced them.
type AlertCache interface {
	GetAlerts(ctx context.Context, version uint64) ([]cohort.Alert, bool)
	SetAlerts(ctx context.Context, version uint64, alerts []cohort.Alert)
}

// GetAlertsHandler handles the GetAlertsQuery.
type GetAlertsHandler struct {
	store SnapshotReader
	cache AlertCache
	cfg   cohort.ScanConfig
	now   func() time.Time
}

// NewGetAlertsHandler creates a new GetAlertsHandler.
// The cache is optional; pass nil to always scan.
func NewGetAlertsHandler(store SnapshotReader, cache AlertCache, cfg cohort.ScanConfig) *GetAlertsHandler {
	return &GetAlertsHandler{
		store: store,
		cache: cache,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the query. A calm population yields an empty slice.
func (h *GetAlertsHandler) Handle(ctx context.Context, q GetAlertsQuery) ([]cohort.Alert, error) {
	version := h.store.Version()

	if h.cache != nil && !q.BypassCache {
		if cached, ok := h.cache.GetAlerts(ctx, version); ok {
			return cached, nil
		}
	}

	alerts := cohort.ScanAlerts(h.store.Snapshot(), h.cfg, h.now())

	if h.cache != nil {
		h.cache.SetAlerts(ctx, version, alerts)
	}

	return alerts, nil
}

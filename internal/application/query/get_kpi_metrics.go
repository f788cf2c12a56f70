package query

import (
	"context"

	"github.com/edupulse/student-insight-hub/internal/domain/cohort"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET KPI METRICS QUERY
// Cohort-level KPIs over the current population snapshot. The scan is
// cheap, but results may be memoized keyed by the snapshot version so
// repeated dashboard polls don't redo it.
// ══════════════════════════════════════════════════════════════════════════════

// GetKPIMetricsQuery requests cohort KPIs.
type GetKPIMetricsQuery struct {
	// BypassCache forces a fresh scan even when a memoized result exists.
	BypassCache bool
}

// SnapshotReader exposes the published population snapshot and its version.
type SnapshotReader interface {
	Snapshot() []*student.Scored
	Version() uint64
}

// KPICache memoizes computed KPIs per snapshot version.
// Implementations must treat a version mismatch as a miss.
type KPICache interface {
	GetKPI(ctx context.Context, version uint64) (*cohort.KPIMetrics, bool)
	SetKPI(ctx context.Context, version uint64, m cohort.KPIMetrics)
}

// GetKPIMetricsHandler handles the GetKPIMetricsQuery.
type GetKPIMetricsHandler struct {
	store SnapshotReader
	cache KPICache
}

// NewGetKPIMetricsHandler creates a new GetKPIMetricsHandler.
// The cache is optional; pass nil to always scan.
func NewGetKPIMetricsHandler(store SnapshotReader, cache KPICache) *GetKPIMetricsHandler {
	return &GetKPIMetricsHandler{store: store, cache: cache}
}

// Handle executes the query. An empty population yields zero-valued
// metrics, never an error.
func (h *GetKPIMetricsHandler) Handle(ctx context.Context, q GetKPIMetricsQuery) (cohort.KPIMetrics, error) {
	version := h.store.Version()

	if h.cache != nil && !q.BypassCache {
		if cached, ok := h.cache.GetKPI(ctx, version); ok {
			return *cached, nil
		}
	}

	metrics := cohort.ComputeKPIMetrics(h.store.Snapshot())

	if h.cache != nil {
		h.cache.SetKPI(ctx, version, metrics)
	}

	return metrics, nil
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edupulse/student-insight-hub/internal/application/query"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCAN ALERTS JOB
// Runs the cohort anomaly rules on a cadence and pushes raised alerts
// onto the event bus, so subscribers (notifiers, audit log) see them
// even when no dashboard is polling.
// ══════════════════════════════════════════════════════════════════════════════

// ScanAlertsJob periodically scans the population for anomalies.
type ScanAlertsJob struct {
	alerts    *query.GetAlertsHandler
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewScanAlertsJob creates the alert scan job.
func NewScanAlertsJob(alerts *query.GetAlertsHandler, publisher shared.EventPublisher, logger *slog.Logger) *ScanAlertsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanAlertsJob{
		alerts:    alerts,
		publisher: publisher,
		logger:    logger,
	}
}

// Name implements scheduler.Job.
func (j *ScanAlertsJob) Name() string {
	return "scan_alerts"
}

// Description implements scheduler.Job.
func (j *ScanAlertsJob) Description() string {
	return "Scans the cohort for anomalies and publishes raised alerts"
}

// Run implements scheduler.Job.
func (j *ScanAlertsJob) Run(ctx context.Context) error {
	alerts, err := j.alerts.Handle(ctx, query.GetAlertsQuery{BypassCache: true})
	if err != nil {
		return fmt.Errorf("scan_alerts: %w", err)
	}

	for _, a := range alerts {
		_ = j.publisher.Publish(shared.NewAlertRaisedEvent(a.ID, string(a.Type), a.Message, a.Count))
	}

	if len(alerts) > 0 {
		j.logger.Info("scan_alerts: anomalies detected", "alerts", len(alerts))
	} else {
		j.logger.Debug("scan_alerts: cohort is calm")
	}
	return nil
}

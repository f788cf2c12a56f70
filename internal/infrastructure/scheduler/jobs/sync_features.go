// Package jobs contains the worker's scheduled jobs. Jobs are thin: they
// pull collaborator data and delegate to the application layer.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edupulse/student-insight-hub/internal/application/command"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/pkg/circuitbreaker"
	"github.com/edupulse/student-insight-hub/pkg/retry"
	"github.com/edupulse/student-insight-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC FEATURES JOB
// Pulls feature vectors from the warehouse and ingests them into the
// population. The warehouse is a slow external dependency, so the fetch
// goes through a retrier and a circuit breaker; the in-memory ingest
// itself never needs either.
// ══════════════════════════════════════════════════════════════════════════════

// FeatureSource fetches raw feature vectors from the warehouse.
type FeatureSource interface {
	FetchAll(ctx context.Context) ([]*student.Features, error)
	FetchUpdatedSince(ctx context.Context, since time.Time) ([]*student.Features, error)
}

// SyncAuditor records sync run outcomes for operational history.
type SyncAuditor interface {
	RecordSyncRun(ctx context.Context, startedAt, completedAt time.Time, fetched, accepted, rejected int, syncErr error) error
}

// SyncFeaturesJob periodically syncs the population from the warehouse.
type SyncFeaturesJob struct {
	source    FeatureSource
	auditor   SyncAuditor
	ingest    *command.IngestFeaturesHandler
	publisher shared.EventPublisher
	breaker   *circuitbreaker.CircuitBreaker
	retrier   *retry.Retrier
	logger    *slog.Logger

	mu       sync.Mutex
	lastSync time.Time
}

// NewSyncFeaturesJob creates the sync job. The auditor is optional.
func NewSyncFeaturesJob(
	source FeatureSource,
	auditor SyncAuditor,
	ingest *command.IngestFeaturesHandler,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *SyncFeaturesJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncFeaturesJob{
		source:    source,
		auditor:   auditor,
		ingest:    ingest,
		publisher: publisher,
		breaker: circuitbreaker.WarehouseBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
		retrier: retry.WarehouseRetrier(),
		logger:  logger,
	}
}

// Name implements scheduler.Job.
func (j *SyncFeaturesJob) Name() string {
	return "sync_features"
}

// Description implements scheduler.Job.
func (j *SyncFeaturesJob) Description() string {
	return "Pulls feature vectors from the warehouse into the population"
}

// Run implements scheduler.Job. The first run does a full sync; later
// runs fetch only rows updated since the previous successful sync.
func (j *SyncFeaturesJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()

	j.mu.Lock()
	since := j.lastSync
	j.mu.Unlock()

	if !since.IsZero() {
		j.logger.Debug("sync_features: incremental fetch",
			"since", timeutil.FormatRelative(since),
		)
	}

	batch, err := j.fetch(ctx, since)
	if err != nil {
		j.audit(ctx, startedAt, 0, 0, 0, err)
		return fmt.Errorf("sync_features: fetch: %w", err)
	}

	if len(batch) == 0 {
		j.logger.Debug("sync_features: warehouse has no new rows")
		j.markSynced(startedAt)
		return nil
	}

	result, err := j.ingest.Handle(ctx, command.IngestFeaturesCommand{
		Records: batch,
		Source:  "warehouse",
	})
	if err != nil {
		j.audit(ctx, startedAt, len(batch), 0, 0, err)
		return fmt.Errorf("sync_features: ingest: %w", err)
	}

	j.markSynced(startedAt)
	j.audit(ctx, startedAt, len(batch), result.Report.Accepted, len(result.Report.Rejected), nil)

	_ = j.publisher.Publish(shared.NewFeatureSyncCompletedEvent(len(batch), time.Since(startedAt)))

	j.logger.Info("sync_features: completed",
		"fetched", len(batch),
		"accepted", result.Report.Accepted,
		"rejected", len(result.Report.Rejected),
		"population", result.PopulationSize,
	)
	return nil
}

// fetch pulls from the warehouse behind the breaker and retrier.
func (j *SyncFeaturesJob) fetch(ctx context.Context, since time.Time) ([]*student.Features, error) {
	var batch []*student.Features

	err := j.breaker.Execute(ctx, func(ctx context.Context) error {
		return j.retrier.Do(ctx, func(ctx context.Context) error {
			var fetchErr error
			if since.IsZero() {
				batch, fetchErr = j.source.FetchAll(ctx)
			} else {
				batch, fetchErr = j.source.FetchUpdatedSince(ctx, since)
			}
			return fetchErr
		})
	})
	if err != nil {
		return nil, shared.WrapError("population", "sync_features", shared.ErrSourceUnavailable, "warehouse fetch failed", err)
	}

	return batch, nil
}

func (j *SyncFeaturesJob) markSynced(at time.Time) {
	j.mu.Lock()
	j.lastSync = at
	j.mu.Unlock()
}

func (j *SyncFeaturesJob) audit(ctx context.Context, startedAt time.Time, fetched, accepted, rejected int, syncErr error) {
	if j.auditor == nil {
		return
	}
	if err := j.auditor.RecordSyncRun(ctx, startedAt, time.Now().UTC(), fetched, accepted, rejected, syncErr); err != nil {
		j.logger.Error("sync_features: audit write failed", "error", err)
	}
}

// Package command contains write operations (CQRS - Commands).
// Commands mutate the population: they ingest feature batches, trigger
// rescores, and reload the scoring profile.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/internal/population"
)

// ══════════════════════════════════════════════════════════════════════════════
// INGEST FEATURES COMMAND
// Scores a batch of raw feature records and folds them into the population.
// Invalid records are rejected individually; the rest of the batch lands.
// ══════════════════════════════════════════════════════════════════════════════

// IngestFeaturesCommand contains the batch to ingest.
type IngestFeaturesCommand struct {
	// Records is the feature batch. Must not be empty.
	Records []*student.Features

	// Source names where the batch came from (e.g. "lms", "synthetic").
	Source string

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c IngestFeaturesCommand) Validate() error {
	if len(c.Records) == 0 {
		return shared.ErrEmptyBatch
	}
	return nil
}

// IngestFeaturesResult contains the outcome of the ingest.
type IngestFeaturesResult struct {
	// BatchID identifies this ingest for tracing and event payloads.
	BatchID string

	// Report carries per-record accept/reject details.
	Report population.IngestReport

	// PopulationSize is the population size after the ingest.
	PopulationSize int

	// Duration is how long the batch took to score and publish.
	Duration time.Duration

	// IngestedAt is when the ingest completed.
	IngestedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// PopulationWriter is the population store as seen by write commands.
type PopulationWriter interface {
	Ingest(batch []*student.Features) (population.IngestReport, error)
	Size() int
}

// InsightInvalidator drops memoized cohort insights after a mutation.
type InsightInvalidator interface {
	InvalidateInsights(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IngestFeaturesHandler handles the IngestFeaturesCommand.
type IngestFeaturesHandler struct {
	store          PopulationWriter
	eventPublisher shared.EventPublisher
	insightCache   InsightInvalidator
}

// NewIngestFeaturesHandler creates a new IngestFeaturesHandler.
// The insight cache is optional; pass nil when memoization is disabled.
func NewIngestFeaturesHandler(
	store PopulationWriter,
	eventPublisher shared.EventPublisher,
	insightCache InsightInvalidator,
) *IngestFeaturesHandler {
	return &IngestFeaturesHandler{
		store:          store,
		eventPublisher: eventPublisher,
		insightCache:   insightCache,
	}
}

// Handle executes the ingest command.
func (h *IngestFeaturesHandler) Handle(ctx context.Context, cmd IngestFeaturesCommand) (*IngestFeaturesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("population", "ingest", shared.ErrValidation, "ingest command rejected", err)
	}

	started := time.Now()
	batchID := uuid.NewString()

	report, err := h.store.Ingest(cmd.Records)
	if err != nil {
		return nil, shared.WrapError("population", "ingest", shared.ErrValidation, "batch ingest failed", err)
	}

	result := &IngestFeaturesResult{
		BatchID:        batchID,
		Report:         report,
		PopulationSize: h.store.Size(),
		Duration:       time.Since(started),
		IngestedAt:     time.Now().UTC(),
	}

	// Publish domain events. Failures are non-fatal: the population
	// is already updated and subscribers can catch up on the next batch.
	event := shared.NewPopulationIngestedEvent(batchID, cmd.Source, report.Total, report.Accepted, len(report.Rejected))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	for _, rej := range report.Rejected {
		_ = h.eventPublisher.Publish(shared.NewRecordRejectedEvent(batchID, rej.StudentID, rej.Reason))
	}

	if h.insightCache != nil && report.Accepted > 0 {
		_ = h.insightCache.InvalidateInsights(ctx)
	}

	return result, nil
}

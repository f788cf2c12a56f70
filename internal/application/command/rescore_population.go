package command

import (
	"context"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESCORE POPULATION COMMAND
// Re-applies the current scoring engine to every stored feature vector.
// Used after a profile change, or on a schedule to pick up drift.
// ══════════════════════════════════════════════════════════════════════════════

// RescorePopulationCommand triggers a full population rescore.
type RescorePopulationCommand struct {
	// Reason documents why the rescore was triggered (e.g. "profile_reload",
	// "scheduled"). Informational only.
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// RescorePopulationResult contains the outcome of the rescore.
type RescorePopulationResult struct {
	// Rescored is the number of records successfully re-scored.
	Rescored int

	// PopulationSize is the total population size.
	PopulationSize int

	// Duration is how long the rescore took.
	Duration time.Duration
}

// PopulationRescorer is the population store as seen by the rescore command.
type PopulationRescorer interface {
	RescoreAll() (int, error)
	Size() int
}

// RescorePopulationHandler handles the RescorePopulationCommand.
type RescorePopulationHandler struct {
	store          PopulationRescorer
	eventPublisher shared.EventPublisher
	insightCache   InsightInvalidator
}

// NewRescorePopulationHandler creates a new RescorePopulationHandler.
func NewRescorePopulationHandler(
	store PopulationRescorer,
	eventPublisher shared.EventPublisher,
	insightCache InsightInvalidator,
) *RescorePopulationHandler {
	return &RescorePopulationHandler{
		store:          store,
		eventPublisher: eventPublisher,
		insightCache:   insightCache,
	}
}

// Handle executes the rescore command.
func (h *RescorePopulationHandler) Handle(ctx context.Context, cmd RescorePopulationCommand) (*RescorePopulationResult, error) {
	started := time.Now()

	rescored, err := h.store.RescoreAll()
	if err != nil {
		return nil, shared.WrapError("population", "rescore_all", shared.ErrInvalidState, "population rescore failed", err)
	}

	result := &RescorePopulationResult{
		Rescored:       rescored,
		PopulationSize: h.store.Size(),
		Duration:       time.Since(started),
	}

	event := shared.NewPopulationRescoredEvent(rescored)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	if h.insightCache != nil {
		_ = h.insightCache.InvalidateInsights(ctx)
	}

	return result, nil
}

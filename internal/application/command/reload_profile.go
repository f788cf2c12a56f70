package command

import (
	"context"

	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/population"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELOAD PROFILE COMMAND
// Installs a new scoring profile into the engine and re-scores the whole
// population so every stored record reflects the new weights.
// ══════════════════════════════════════════════════════════════════════════════

// ReloadProfileCommand carries the new profile to install.
type ReloadProfileCommand struct {
	// Profile is the validated replacement profile.
	Profile *scoring.Profile

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ReloadProfileCommand) Validate() error {
	if c.Profile == nil {
		return shared.NewDomainError("scoring", "reload_profile", shared.ErrInvalidProfile,
			"profile must not be nil")
	}
	return c.Profile.Validate()
}

// ReloadProfileResult contains the outcome of the reload.
type ReloadProfileResult struct {
	ProfileName string
	Rescored    int
}

// ScorerSwapper installs a replacement scoring engine into the store.
type ScorerSwapper interface {
	SetScorer(scorer population.Scorer)
}

// ReloadProfileHandler handles the ReloadProfileCommand.
type ReloadProfileHandler struct {
	store          ScorerSwapper
	rescore        *RescorePopulationHandler
	eventPublisher shared.EventPublisher
}

// NewReloadProfileHandler creates a new ReloadProfileHandler.
func NewReloadProfileHandler(
	store ScorerSwapper,
	rescore *RescorePopulationHandler,
	eventPublisher shared.EventPublisher,
) *ReloadProfileHandler {
	return &ReloadProfileHandler{
		store:          store,
		rescore:        rescore,
		eventPublisher: eventPublisher,
	}
}

// Handle validates the profile, swaps the engine and re-scores everything.
func (h *ReloadProfileHandler) Handle(ctx context.Context, cmd ReloadProfileCommand) (*ReloadProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	engine, err := scoring.NewEngine(*cmd.Profile)
	if err != nil {
		return nil, shared.WrapError("scoring", "reload_profile", shared.ErrInvalidInput, "engine rebuild failed", err)
	}
	h.store.SetScorer(engine)

	rescoreRes, err := h.rescore.Handle(ctx, RescorePopulationCommand{
		Reason:        "profile_reload",
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewProfileReloadedEvent(cmd.Profile.Name, rescoreRes.Rescored)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &ReloadProfileResult{
		ProfileName: cmd.Profile.Name,
		Rescored:    rescoreRes.Rescored,
	}, nil
}

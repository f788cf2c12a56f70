package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edupulse/student-insight-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESCORE POPULATION JOB
// ══════════════════════════════════════════════════════════════════════════════

// RescorePopulationJob periodically re-scores the whole population, so
// derived fields track profile changes made outside the reload flow.
type RescorePopulationJob struct {
	rescore *command.RescorePopulationHandler
	logger  *slog.Logger
}

// NewRescorePopulationJob creates the rescore job.
func NewRescorePopulationJob(rescore *command.RescorePopulationHandler, logger *slog.Logger) *RescorePopulationJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RescorePopulationJob{rescore: rescore, logger: logger}
}

// Name implements scheduler.Job.
func (j *RescorePopulationJob) Name() string {
	return "rescore_population"
}

// Description implements scheduler.Job.
func (j *RescorePopulationJob) Description() string {
	return "Re-scores every stored feature vector with the current profile"
}

// Run implements scheduler.Job.
func (j *RescorePopulationJob) Run(ctx context.Context) error {
	result, err := j.rescore.Handle(ctx, command.RescorePopulationCommand{Reason: "scheduled"})
	if err != nil {
		return fmt.Errorf("rescore_population: %w", err)
	}

	j.logger.Info("rescore_population: completed",
		"rescored", result.Rescored,
		"population", result.PopulationSize,
		"duration", result.Duration,
	)
	return nil
}

package eventhandler

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

func capturedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestOnPopulationIngested_LogsInfoOnCleanBatch(t *testing.T) {
	logger, buf := capturedLogger()
	h := NewOnPopulationIngestedHandler(logger, DefaultPopulationIngestedConfig())

	event := shared.NewPopulationIngestedEvent("batch-1", "synthetic", 200, 200, 0)
	require.NoError(t, h.Handle(event))

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "batch ingested")
	assert.Contains(t, out, "batch-1")
	assert.NotContains(t, out, "high reject rate")
}

func TestOnPopulationIngested_WarnsOnHighRejectRate(t *testing.T) {
	logger, buf := capturedLogger()
	h := NewOnPopulationIngestedHandler(logger, PopulationIngestedConfig{RejectRateWarnThreshold: 0.10})

	// 30 of 200 rejected: 15%, above the 10% threshold.
	event := shared.NewPopulationIngestedEvent("batch-2", "lms", 200, 170, 30)
	require.NoError(t, h.Handle(event))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "high reject rate")
}

func TestOnPopulationIngested_RateBelowThresholdStaysInfo(t *testing.T) {
	logger, buf := capturedLogger()
	h := NewOnPopulationIngestedHandler(logger, PopulationIngestedConfig{RejectRateWarnThreshold: 0.10})

	// 5 of 200 rejected: 2.5%.
	event := shared.NewPopulationIngestedEvent("batch-3", "lms", 200, 195, 5)
	require.NoError(t, h.Handle(event))

	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestOnPopulationIngested_EmptyTotalDoesNotDivide(t *testing.T) {
	logger, _ := capturedLogger()
	h := NewOnPopulationIngestedHandler(logger, DefaultPopulationIngestedConfig())

	event := shared.NewPopulationIngestedEvent("batch-4", "lms", 0, 0, 0)
	assert.NoError(t, h.Handle(event))
}

func TestOnPopulationIngested_IgnoresOtherEvents(t *testing.T) {
	logger, buf := capturedLogger()
	h := NewOnPopulationIngestedHandler(logger, DefaultPopulationIngestedConfig())

	require.NoError(t, h.Handle(shared.NewPopulationRescoredEvent(5)))
	assert.Contains(t, buf.String(), "non-PopulationIngestedEvent")
}

func TestOnPopulationIngested_EventType(t *testing.T) {
	h := NewOnPopulationIngestedHandler(nil, DefaultPopulationIngestedConfig())
	assert.Equal(t, shared.EventPopulationIngested, h.EventType())
}

package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/internal/population"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

// recordingPublisher captures every published event.
type recordingPublisher struct {
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingInvalidator struct {
	calls int
}

func (i *recordingInvalidator) InvalidateInsights(context.Context) error {
	i.calls++
	return nil
}

func newPopulationStore(t *testing.T) *population.Store {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultProfile())
	require.NoError(t, err)
	return population.NewStore(engine, scoring.DefaultStrategy())
}

func featureFixture(id string) *student.Features {
	return &student.Features{
		StudentID:            student.ID(id),
		LoginFrequency:       5,
		SessionDuration:      60,
		ForumParticipation:   2,
		AssignmentAccessRate: 0.7,
		TimeGapAvg:           2,
		InactivityDays:       1,
		EngagementTrend:      []float64{50, 55, 60},
		SentimentScore:       0.1,
		SentimentLabel:       student.SentimentNeutral,
		QuizAvg:              70,
		AssignmentAvg:        72,
		ExamAvg:              68,
		ETIScore:             60,
		TimeSpentHours:       100,
		ProgressPct:          45,
		HistoricalGPA:        2.9,
		Program:              "Computer Science",
		LastActivity:         time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INGEST FEATURES
// ══════════════════════════════════════════════════════════════════════════════

func TestIngestFeaturesHandler(t *testing.T) {
	store := newPopulationStore(t)
	publisher := &recordingPublisher{}
	invalidator := &recordingInvalidator{}
	h := NewIngestFeaturesHandler(store, publisher, invalidator)

	res, err := h.Handle(context.Background(), IngestFeaturesCommand{
		Records: []*student.Features{featureFixture("STU00001"), featureFixture("STU00002")},
		Source:  "synthetic",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 2, res.Report.Accepted)
	assert.Equal(t, 2, res.PopulationSize)
	assert.Equal(t, 1, invalidator.calls)

	ingested := publisher.ofType(shared.EventPopulationIngested)
	require.Len(t, ingested, 1)
	event := ingested[0].(*shared.PopulationIngestedEvent)
	assert.Equal(t, res.BatchID, event.BatchID)
	assert.Equal(t, "synthetic", event.Source)
	assert.Equal(t, 2, event.Ingested)
}

func TestIngestFeaturesHandler_EmptyBatch(t *testing.T) {
	h := NewIngestFeaturesHandler(newPopulationStore(t), &recordingPublisher{}, nil)

	res, err := h.Handle(context.Background(), IngestFeaturesCommand{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, shared.ErrEmptyBatch)
}

func TestIngestFeaturesHandler_PublishesRejections(t *testing.T) {
	store := newPopulationStore(t)
	publisher := &recordingPublisher{}
	h := NewIngestFeaturesHandler(store, publisher, nil)

	bad := featureFixture("STU00002")
	bad.HistoricalGPA = 9

	res, err := h.Handle(context.Background(), IngestFeaturesCommand{
		Records: []*student.Features{featureFixture("STU00001"), bad},
		Source:  "lms",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Accepted)

	rejected := publisher.ofType(shared.EventRecordRejected)
	require.Len(t, rejected, 1)
	event := rejected[0].(*shared.RecordRejectedEvent)
	assert.Equal(t, "STU00002", event.StudentID)
	assert.NotEmpty(t, event.Reason)
}

func TestIngestFeaturesHandler_PropagatesCorrelationID(t *testing.T) {
	publisher := &recordingPublisher{}
	h := NewIngestFeaturesHandler(newPopulationStore(t), publisher, nil)

	_, err := h.Handle(context.Background(), IngestFeaturesCommand{
		Records:       []*student.Features{featureFixture("STU00001")},
		Source:        "synthetic",
		CorrelationID: "corr-123",
	})
	require.NoError(t, err)

	ingested := publisher.ofType(shared.EventPopulationIngested)
	require.Len(t, ingested, 1)
	assert.Equal(t, "corr-123", ingested[0].(*shared.PopulationIngestedEvent).CorrelationID)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESCORE POPULATION
// ══════════════════════════════════════════════════════════════════════════════

func TestRescorePopulationHandler(t *testing.T) {
	store := newPopulationStore(t)
	publisher := &recordingPublisher{}
	invalidator := &recordingInvalidator{}

	ingest := NewIngestFeaturesHandler(store, publisher, nil)
	_, err := ingest.Handle(context.Background(), IngestFeaturesCommand{
		Records: []*student.Features{featureFixture("STU00001"), featureFixture("STU00002")},
		Source:  "synthetic",
	})
	require.NoError(t, err)

	h := NewRescorePopulationHandler(store, publisher, invalidator)
	res, err := h.Handle(context.Background(), RescorePopulationCommand{Reason: "scheduled"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rescored)
	assert.Equal(t, 2, res.PopulationSize)
	assert.Equal(t, 1, invalidator.calls)
	assert.Len(t, publisher.ofType(shared.EventPopulationRescored), 1)
}

// ══════════════════════════════════════════════════════════════════════════════
// RELOAD PROFILE
// ══════════════════════════════════════════════════════════════════════════════

func TestReloadProfileHandler(t *testing.T) {
	store := newPopulationStore(t)
	publisher := &recordingPublisher{}

	ingest := NewIngestFeaturesHandler(store, publisher, nil)
	_, err := ingest.Handle(context.Background(), IngestFeaturesCommand{
		Records: []*student.Features{featureFixture("STU00001")},
		Source:  "synthetic",
	})
	require.NoError(t, err)

	rescore := NewRescorePopulationHandler(store, publisher, nil)
	h := NewReloadProfileHandler(store, rescore, publisher)

	profile := scoring.DefaultProfile()
	profile.Name = "strict"
	profile.Thresholds.HighlyEngagedMin = 90

	res, err := h.Handle(context.Background(), ReloadProfileCommand{Profile: &profile})
	require.NoError(t, err)

	assert.Equal(t, "strict", res.ProfileName)
	assert.Equal(t, 1, res.Rescored)

	reloaded := publisher.ofType(shared.EventProfileReloaded)
	require.Len(t, reloaded, 1)
	assert.Equal(t, "strict", reloaded[0].(*shared.ProfileReloadedEvent).ProfileName)
}

func TestReloadProfileHandler_NilProfile(t *testing.T) {
	store := newPopulationStore(t)
	publisher := &recordingPublisher{}
	rescore := NewRescorePopulationHandler(store, publisher, nil)
	h := NewReloadProfileHandler(store, rescore, publisher)

	res, err := h.Handle(context.Background(), ReloadProfileCommand{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, shared.ErrInvalidProfile)
}

func TestReloadProfileHandler_InvalidProfile(t *testing.T) {
	store := newPopulationStore(t)
	publisher := &recordingPublisher{}
	rescore := NewRescorePopulationHandler(store, publisher, nil)
	h := NewReloadProfileHandler(store, rescore, publisher)

	profile := scoring.DefaultProfile()
	profile.Risk.Sentiment = -1

	res, err := h.Handle(context.Background(), ReloadProfileCommand{Profile: &profile})
	assert.Nil(t, res)
	assert.Error(t, err)
	assert.Empty(t, publisher.ofType(shared.EventProfileReloaded))
}

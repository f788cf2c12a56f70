package population

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultProfile())
	require.NoError(t, err)
	return NewStore(engine, scoring.DefaultStrategy())
}

func featuresFor(id string) *student.Features {
	return &student.Features{
		StudentID:            student.ID(id),
		LoginFrequency:       5,
		SessionDuration:      60,
		ForumParticipation:   2,
		AssignmentAccessRate: 0.7,
		TimeGapAvg:           2,
		InactivityDays:       1,
		EngagementTrend:      []float64{50, 55, 60, 58, 62, 65},
		SentimentScore:       0.2,
		SentimentLabel:       student.SentimentNeutral,
		QuizAvg:              70,
		AssignmentAvg:        75,
		ExamAvg:              68,
		ETIScore:             60,
		TimeSpentHours:       110,
		ProgressPct:          50,
		HistoricalGPA:        3.0,
		Program:              "Data Science",
		LastActivity:         time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_Ingest_EmptyBatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Ingest(nil)
	assert.ErrorIs(t, err, shared.ErrEmptyBatch)
	assert.Equal(t, 0, store.Size())
}

func TestStore_Ingest_AcceptsValidBatch(t *testing.T) {
	store := newTestStore(t)

	report, err := store.Ingest([]*student.Features{
		featuresFor("STU00001"),
		featuresFor("STU00002"),
		featuresFor("STU00003"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Accepted)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 3, store.Size())
}

func TestStore_Ingest_PartialRejection(t *testing.T) {
	store := newTestStore(t)

	bad := featuresFor("STU00002")
	bad.QuizAvg = 140

	report, err := store.Ingest([]*student.Features{
		featuresFor("STU00001"),
		bad,
		featuresFor("STU00003"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Accepted)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "STU00002", report.Rejected[0].StudentID)
	assert.NotEmpty(t, report.Rejected[0].Reason)

	// Отклонённая запись не попадает в популяцию, остальные - попадают.
	assert.Equal(t, 2, store.Size())
	_, err = store.Get("STU00002")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStore_Ingest_ReplacesInPlace(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Ingest([]*student.Features{
		featuresFor("STU00001"),
		featuresFor("STU00002"),
		featuresFor("STU00003"),
	})
	require.NoError(t, err)

	updated := featuresFor("STU00002")
	updated.QuizAvg = 95

	_, err = store.Ingest([]*student.Features{updated})
	require.NoError(t, err)

	// Размер не вырос, порядок вставки не изменился.
	assert.Equal(t, 3, store.Size())

	snapshot := store.Snapshot()
	ids := make([]student.ID, 0, len(snapshot))
	for _, s := range snapshot {
		ids = append(ids, s.StudentID)
	}
	assert.Equal(t, []student.ID{"STU00001", "STU00002", "STU00003"}, ids)

	got, err := store.Get("STU00002")
	require.NoError(t, err)
	assert.Equal(t, student.Percent(95), got.QuizAvg)
}

func TestStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("STU09999")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStore_Version_GrowsWithEveryMutation(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, uint64(0), store.Version())

	_, err := store.Ingest([]*student.Features{featuresFor("STU00001")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), store.Version())

	_, err = store.RescoreAll()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), store.Version())
}

func TestStore_RescoreAll(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Ingest([]*student.Features{
		featuresFor("STU00001"),
		featuresFor("STU00002"),
	})
	require.NoError(t, err)

	before, err := store.Get("STU00001")
	require.NoError(t, err)

	// Движок с другими порогами персон: после пересчёта классификация
	// меняется, признаки остаются прежними.
	profile := scoring.DefaultProfile()
	profile.Thresholds.HighlyEngagedMin = 5
	profile.Thresholds.ModeratelyEngagedMin = 1
	engine, err := scoring.NewEngine(profile)
	require.NoError(t, err)
	store.SetScorer(engine)

	rescored, err := store.RescoreAll()
	require.NoError(t, err)
	assert.Equal(t, 2, rescored)

	after, err := store.Get("STU00001")
	require.NoError(t, err)
	assert.Equal(t, before.Features, after.Features)
	assert.Equal(t, student.PersonaHighlyEngaged, after.EngagementPersona)
}

func TestStore_Snapshot_IsStableUnderMutation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Ingest([]*student.Features{featuresFor("STU00001")})
	require.NoError(t, err)

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)

	_, err = store.Ingest([]*student.Features{featuresFor("STU00002")})
	require.NoError(t, err)

	// Ранее полученный снимок не видит последующих мутаций.
	assert.Len(t, snapshot, 1)
	assert.Len(t, store.Snapshot(), 2)
}

func TestStore_Filter(t *testing.T) {
	store := newTestStore(t)

	inactive := featuresFor("STU00002")
	inactive.InactivityDays = 14

	_, err := store.Ingest([]*student.Features{
		featuresFor("STU00001"),
		inactive,
		featuresFor("STU00103"),
	})
	require.NoError(t, err)

	t.Run("empty filter returns everything in order", func(t *testing.T) {
		matched := store.Filter(Filter{})
		require.Len(t, matched, 3)
		assert.Equal(t, student.ID("STU00001"), matched[0].StudentID)
		assert.Equal(t, student.ID("STU00103"), matched[2].StudentID)
	})

	t.Run("substring match is case-insensitive", func(t *testing.T) {
		matched := store.Filter(Filter{IDContains: "stu001"})
		require.Len(t, matched, 1)
		assert.Equal(t, student.ID("STU00103"), matched[0].StudentID)
	})

	t.Run("min inactivity days", func(t *testing.T) {
		matched := store.Filter(Filter{MinInactivityDays: 10})
		require.Len(t, matched, 1)
		assert.Equal(t, student.ID("STU00002"), matched[0].StudentID)
	})

	t.Run("predicates combine with AND", func(t *testing.T) {
		matched := store.Filter(Filter{IDContains: "STU001", MinInactivityDays: 10})
		assert.Empty(t, matched)
	})

	t.Run("no matches is empty, not nil error", func(t *testing.T) {
		matched := store.Filter(Filter{IDContains: "nope"})
		assert.NotNil(t, matched)
		assert.Empty(t, matched)
	})
}

func TestFilter_IsEmpty(t *testing.T) {
	assert.True(t, Filter{}.IsEmpty())
	assert.False(t, Filter{Persona: student.PersonaAtRisk}.IsEmpty())
	assert.False(t, Filter{MinInactivityDays: 3}.IsEmpty())
}

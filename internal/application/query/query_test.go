package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/cohort"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/internal/population"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

// fakeStore is an in-memory stand-in for the population store.
type fakeStore struct {
	students []*student.Scored
	version  uint64
}

func (f *fakeStore) Snapshot() []*student.Scored { return f.students }
func (f *fakeStore) Version() uint64             { return f.version }

func (f *fakeStore) Get(id student.ID) (*student.Scored, error) {
	for _, s := range f.students {
		if s.StudentID == id {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (f *fakeStore) Filter(flt population.Filter) []*student.Scored {
	matched := make([]*student.Scored, 0, len(f.students))
	for _, s := range f.students {
		if flt.Matches(s) {
			matched = append(matched, s)
		}
	}
	return matched
}

type fakeKPICache struct {
	stored map[uint64]cohort.KPIMetrics
	hits   int
	sets   int
}

func newFakeKPICache() *fakeKPICache {
	return &fakeKPICache{stored: make(map[uint64]cohort.KPIMetrics)}
}

func (c *fakeKPICache) GetKPI(_ context.Context, version uint64) (*cohort.KPIMetrics, bool) {
	m, ok := c.stored[version]
	if ok {
		c.hits++
	}
	return &m, ok
}

func (c *fakeKPICache) SetKPI(_ context.Context, version uint64, m cohort.KPIMetrics) {
	c.sets++
	c.stored[version] = m
}

type fakeAlertCache struct {
	stored map[uint64][]cohort.Alert
}

func newFakeAlertCache() *fakeAlertCache {
	return &fakeAlertCache{stored: make(map[uint64][]cohort.Alert)}
}

func (c *fakeAlertCache) GetAlerts(_ context.Context, version uint64) ([]cohort.Alert, bool) {
	a, ok := c.stored[version]
	return a, ok
}

func (c *fakeAlertCache) SetAlerts(_ context.Context, version uint64, alerts []cohort.Alert) {
	c.stored[version] = alerts
}

func scoredFixture(id string, persona student.Persona, risk student.RiskLevel, grade student.Grade, inactivity int) *student.Scored {
	return &student.Scored{
		Features: student.Features{
			StudentID:      student.ID(id),
			InactivityDays: inactivity,
		},
		EngagementScore:   50,
		EngagementPersona: persona,
		PredictedGrade:    grade,
		RiskLevel:         risk,
	}
}

func populatedStore() *fakeStore {
	return &fakeStore{
		version: 3,
		students: []*student.Scored{
			scoredFixture("STU00001", student.PersonaHighlyEngaged, student.RiskLow, student.GradeA, 0),
			scoredFixture("STU00002", student.PersonaModeratelyEngaged, student.RiskMedium, student.GradeC, 3),
			scoredFixture("STU00003", student.PersonaAtRisk, student.RiskHigh, student.GradeF, 14),
			scoredFixture("STU00004", student.PersonaAtRisk, student.RiskHigh, student.GradeD, 9),
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT
// ══════════════════════════════════════════════════════════════════════════════

func TestGetStudentHandler(t *testing.T) {
	h := NewGetStudentHandler(populatedStore())

	got, err := h.Handle(context.Background(), GetStudentQuery{StudentID: "STU00002"})
	require.NoError(t, err)
	assert.Equal(t, student.ID("STU00002"), got.StudentID)
}

func TestGetStudentHandler_NotFound(t *testing.T) {
	h := NewGetStudentHandler(populatedStore())

	got, err := h.Handle(context.Background(), GetStudentQuery{StudentID: "STU09999"})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetStudentHandler_EmptyID(t *testing.T) {
	h := NewGetStudentHandler(populatedStore())

	_, err := h.Handle(context.Background(), GetStudentQuery{StudentID: "  "})
	assert.ErrorIs(t, err, shared.ErrEmptyStudentID)
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTER STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

func TestFilterStudentsHandler_NoPredicates(t *testing.T) {
	h := NewFilterStudentsHandler(populatedStore())

	res, err := h.Handle(context.Background(), FilterStudentsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Len(t, res.Students, 4)
}

func TestFilterStudentsHandler_AllSentinel(t *testing.T) {
	h := NewFilterStudentsHandler(populatedStore())

	res, err := h.Handle(context.Background(), FilterStudentsQuery{
		Persona:   "all",
		RiskLevel: "all",
		Grade:     "all",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
}

func TestFilterStudentsHandler_CombinedPredicates(t *testing.T) {
	h := NewFilterStudentsHandler(populatedStore())

	res, err := h.Handle(context.Background(), FilterStudentsQuery{
		Persona:           string(student.PersonaAtRisk),
		RiskLevel:         string(student.RiskHigh),
		MinInactivityDays: 10,
	})
	require.NoError(t, err)
	require.Len(t, res.Students, 1)
	assert.Equal(t, student.ID("STU00003"), res.Students[0].StudentID)
}

func TestFilterStudentsHandler_Pagination(t *testing.T) {
	h := NewFilterStudentsHandler(populatedStore())

	res, err := h.Handle(context.Background(), FilterStudentsQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Students, 2)
	assert.Equal(t, student.ID("STU00002"), res.Students[0].StudentID)
	assert.Equal(t, student.ID("STU00003"), res.Students[1].StudentID)
}

func TestFilterStudentsHandler_OffsetPastEnd(t *testing.T) {
	h := NewFilterStudentsHandler(populatedStore())

	res, err := h.Handle(context.Background(), FilterStudentsQuery{Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Empty(t, res.Students)
}

func TestFilterStudentsHandler_RejectsUnknownEnums(t *testing.T) {
	h := NewFilterStudentsHandler(populatedStore())

	for _, q := range []FilterStudentsQuery{
		{Persona: "Somewhat Engaged"},
		{RiskLevel: "Extreme"},
		{Grade: "Z"},
		{Limit: -1},
	} {
		_, err := h.Handle(context.Background(), q)
		assert.ErrorIs(t, err, shared.ErrValidation, "query %+v", q)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// KPI METRICS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetKPIMetricsHandler_WithoutCache(t *testing.T) {
	h := NewGetKPIMetricsHandler(populatedStore(), nil)

	m, err := h.Handle(context.Background(), GetKPIMetricsQuery{})
	require.NoError(t, err)

	assert.Equal(t, 4, m.TotalStudents)
	assert.Equal(t, 2, m.AtRiskCount)
	assert.InDelta(t, 75.0, m.PredictedPassRate, 1e-9)
}

func TestGetKPIMetricsHandler_EmptyPopulation(t *testing.T) {
	h := NewGetKPIMetricsHandler(&fakeStore{}, nil)

	m, err := h.Handle(context.Background(), GetKPIMetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, cohort.KPIMetrics{}, m)
}

func TestGetKPIMetricsHandler_MemoizesPerVersion(t *testing.T) {
	store := populatedStore()
	cache := newFakeKPICache()
	h := NewGetKPIMetricsHandler(store, cache)

	first, err := h.Handle(context.Background(), GetKPIMetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := h.Handle(context.Background(), GetKPIMetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, cache.sets)

	// A version bump is a cache miss: metrics are recomputed and re-memoized.
	store.version++
	store.students = store.students[:2]

	third, err := h.Handle(context.Background(), GetKPIMetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, third.TotalStudents)
	assert.Equal(t, 2, cache.sets)
}

func TestGetKPIMetricsHandler_BypassCache(t *testing.T) {
	cache := newFakeKPICache()
	h := NewGetKPIMetricsHandler(populatedStore(), cache)

	_, err := h.Handle(context.Background(), GetKPIMetricsQuery{})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), GetKPIMetricsQuery{BypassCache: true})
	require.NoError(t, err)

	assert.Equal(t, 0, cache.hits)
	assert.Equal(t, 2, cache.sets)
}

// ══════════════════════════════════════════════════════════════════════════════
// ALERTS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetAlertsHandler(t *testing.T) {
	h := NewGetAlertsHandler(populatedStore(), nil, cohort.DefaultScanConfig())

	alerts, err := h.Handle(context.Background(), GetAlertsQuery{})
	require.NoError(t, err)

	// Two high-risk students and two inactive past the 7-day threshold.
	require.Len(t, alerts, 2)
	assert.Equal(t, cohort.AlertHighRisk, alerts[0].Type)
	assert.Equal(t, 2, alerts[0].Count)
	assert.Equal(t, cohort.AlertInactive, alerts[1].Type)
	assert.Equal(t, 2, alerts[1].Count)
}

func TestGetAlertsHandler_CalmPopulationIsEmpty(t *testing.T) {
	store := &fakeStore{students: []*student.Scored{
		scoredFixture("STU00001", student.PersonaHighlyEngaged, student.RiskLow, student.GradeA, 0),
	}}
	h := NewGetAlertsHandler(store, nil, cohort.DefaultScanConfig())

	alerts, err := h.Handle(context.Background(), GetAlertsQuery{})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestGetAlertsHandler_MemoizedAlertsKeepScanTime(t *testing.T) {
	store := populatedStore()
	cache := newFakeAlertCache()
	h := NewGetAlertsHandler(store, cache, cohort.DefaultScanConfig())

	scanTime := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return scanTime }

	first, err := h.Handle(context.Background(), GetAlertsQuery{})
	require.NoError(t, err)

	h.now = func() time.Time { return scanTime.Add(time.Hour) }

	second, err := h.Handle(context.Background(), GetAlertsQuery{})
	require.NoError(t, err)

	// Cache hit: timestamps still reflect the original scan.
	require.Len(t, second, len(first))
	assert.Equal(t, scanTime, second[0].Timestamp)
}

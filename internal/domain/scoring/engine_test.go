package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultProfile())
	require.NoError(t, err)
	return engine
}

func baseFeatures() *student.Features {
	return &student.Features{
		StudentID:            "STU00001",
		LoginFrequency:       10,
		SessionDuration:      120,
		ForumParticipation:   5,
		AssignmentAccessRate: 1.0,
		TimeGapAvg:           0,
		InactivityDays:       0,
		EngagementTrend:      []float64{60, 62, 64, 66, 68, 70, 72, 74, 76, 78, 80, 82},
		SentimentScore:       0,
		SentimentLabel:       student.SentimentNeutral,
		QuizAvg:              80,
		AssignmentAvg:        80,
		ExamAvg:              80,
		ETIScore:             80,
		TimeSpentHours:       100,
		ProgressPct:          60,
		HistoricalGPA:        3.0,
		Program:              "Computer Science",
		LastActivity:         time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestEngine_Score_ReferenceVector(t *testing.T) {
	engine := newTestEngine(t)

	scored, err := engine.Score(baseFeatures(), DefaultStrategy())
	require.NoError(t, err)

	// Hand-computed against the reference weights:
	// 10*0.20 + (120/120)*100*0.15 + 5*2*0.15 + 1.0*100*0.20
	//   + (10-0)/10*100*0.15 + (30-0)/30*100*0.15 = 68.5
	assert.InDelta(t, 68.5, scored.EngagementScore, 1e-9)
	assert.Equal(t, student.PersonaModeratelyEngaged, scored.EngagementPersona)

	// 80*0.25 + 80*0.25 + 80*0.30 + 80*0.10 + 68.5*0.10 = 78.85
	assert.InDelta(t, 78.85, scored.PredictedScore, 1e-9)
	assert.Equal(t, student.GradeC, scored.PredictedGrade)

	// 0*0.40 + (100-68.5)*0.40 + ((1-0)/2)*100*0.20 = 22.6
	assert.InDelta(t, 22.6, scored.DropoutRiskScore, 1e-9)
	assert.Equal(t, student.RiskLow, scored.RiskLevel)
}

func TestEngine_Score_ClampsEngagementAtHundred(t *testing.T) {
	engine := newTestEngine(t)

	f := baseFeatures()
	f.LoginFrequency = 1000 // the raw sum alone exceeds 100

	scored, err := engine.Score(f, DefaultStrategy())
	require.NoError(t, err)

	assert.Equal(t, 100.0, scored.EngagementScore)
	assert.Equal(t, student.PersonaHighlyEngaged, scored.EngagementPersona)
}

func TestEngine_Score_ClampsEngagementAtZero(t *testing.T) {
	engine := newTestEngine(t)

	f := baseFeatures()
	f.LoginFrequency = 0
	f.SessionDuration = 0
	f.ForumParticipation = 0
	f.AssignmentAccessRate = 0
	f.TimeGapAvg = 20 // negative contribution past the nominal range
	f.InactivityDays = 60
	f.SentimentScore = -1

	scored, err := engine.Score(f, DefaultStrategy())
	require.NoError(t, err)

	assert.Equal(t, 0.0, scored.EngagementScore)
	assert.Equal(t, student.PersonaAtRisk, scored.EngagementPersona)

	// Risk is also clamped: inactivity alone contributes 200*0.40.
	assert.Equal(t, 100.0, scored.DropoutRiskScore)
	assert.Equal(t, student.RiskHigh, scored.RiskLevel)
}

func TestEngine_Score_PredictedScoreIsNotClamped(t *testing.T) {
	profile := DefaultProfile()
	profile.Prediction = PredictionWeights{Quiz: 1, Assignment: 1, Exam: 1, ETI: 1, Engagement: 1}
	engine, err := NewEngine(profile)
	require.NoError(t, err)

	scored, err := engine.Score(baseFeatures(), DefaultStrategy())
	require.NoError(t, err)

	assert.Greater(t, scored.PredictedScore, 100.0)
	assert.Equal(t, student.GradeA, scored.PredictedGrade)
}

func TestEngine_Score_RejectsInvalidFeatures(t *testing.T) {
	engine := newTestEngine(t)

	f := baseFeatures()
	f.QuizAvg = 140

	scored, err := engine.Score(f, DefaultStrategy())
	assert.Nil(t, scored)
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestEngine_Score_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	strategy := RecommendStrategy{Seed: 42}

	first, err := engine.Score(baseFeatures(), strategy)
	require.NoError(t, err)
	second, err := engine.Score(baseFeatures(), strategy)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_Score_DoesNotAliasInput(t *testing.T) {
	engine := newTestEngine(t)

	f := baseFeatures()
	scored, err := engine.Score(f, DefaultStrategy())
	require.NoError(t, err)

	f.EngagementTrend[0] = -999
	assert.Equal(t, 60.0, scored.EngagementTrend[0])
}

func TestEngine_ClassifyPersona_Boundaries(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		score float64
		want  student.Persona
	}{
		{100, student.PersonaHighlyEngaged},
		{70, student.PersonaHighlyEngaged},
		{69.999, student.PersonaModeratelyEngaged},
		{40, student.PersonaModeratelyEngaged},
		{39.999, student.PersonaAtRisk},
		{0, student.PersonaAtRisk},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.ClassifyPersona(tt.score), "score %v", tt.score)
	}
}

func TestEngine_ClassifyRisk_Boundaries(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		score float64
		want  student.RiskLevel
	}{
		{100, student.RiskHigh},
		{60, student.RiskHigh},
		{59.999, student.RiskMedium},
		{30, student.RiskMedium},
		{29.999, student.RiskLow},
		{0, student.RiskLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.ClassifyRisk(tt.score), "score %v", tt.score)
	}
}

func TestEngine_ClassifyGrade_Boundaries(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		score float64
		want  student.Grade
	}{
		{120, student.GradeA},
		{90, student.GradeA},
		{89.999, student.GradeB},
		{80, student.GradeB},
		{70, student.GradeC},
		{60, student.GradeD},
		{59.999, student.GradeF},
		{0, student.GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.ClassifyGrade(tt.score), "score %v", tt.score)
	}
}

func TestEngine_WeakAreas(t *testing.T) {
	engine := newTestEngine(t)

	f := baseFeatures()
	f.QuizAvg = 50
	f.AssignmentAvg = 55
	f.ForumParticipation = 1
	f.InactivityDays = 10

	areas := engine.WeakAreas(f)
	assert.ElementsMatch(t, []string{
		WeakAreaQuiz,
		WeakAreaAssignment,
		WeakAreaForum,
		WeakAreaActivity,
	}, areas)
}

func TestEngine_WeakAreas_FallsBackToGeneral(t *testing.T) {
	engine := newTestEngine(t)

	areas := engine.WeakAreas(baseFeatures())
	assert.Equal(t, []string{WeakAreaGeneral}, areas)
}

func TestNewEngine_RejectsInvalidProfile(t *testing.T) {
	profile := DefaultProfile()
	profile.Thresholds.ModeratelyEngagedMin = 80 // above HighlyEngagedMin

	engine, err := NewEngine(profile)
	assert.Nil(t, engine)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		ok     bool
	}{
		{"default profile", func(p *Profile) {}, true},
		{"negative weight", func(p *Profile) { p.Engagement.TimeGap = -0.1 }, false},
		{"persona order inverted", func(p *Profile) { p.Thresholds.HighlyEngagedMin = 30 }, false},
		{"risk order inverted", func(p *Profile) { p.Thresholds.RiskMediumMin = 70 }, false},
		{"grade bands collapsed", func(p *Profile) { p.Thresholds.GradeBMin = 95 }, false},
		{"negative weak-area threshold", func(p *Profile) { p.WeakAreas.QuizBelow = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

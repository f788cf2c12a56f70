package student

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

func validFeatures() *Features {
	score := 72.5
	return &Features{
		StudentID:            "STU00001",
		LoginFrequency:       4.5,
		SessionDuration:      75,
		ForumParticipation:   3,
		AssignmentAccessRate: 0.8,
		TimeGapAvg:           2.5,
		InactivityDays:       1,
		EngagementTrend:      []float64{55, 58, 60, 62, 61, 63, 65, 64, 66, 68, 70, 71},
		FeedbackTexts:        []string{"Good course overall"},
		SentimentScore:       0.4,
		SentimentLabel:       SentimentPositive,
		TopKeywords:          []string{"helpful", "clear"},
		QuizAvg:              74,
		AssignmentAvg:        78,
		ExamAvg:              69,
		ETIScore:             62,
		TimeSpentHours:       130,
		ProgressPct:          55,
		HistoricalGPA:        3.2,
		ActualScore:          &score,
		Program:              "Computer Science",
		LastActivity:         time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestFeatures_Validate_Valid(t *testing.T) {
	require.NoError(t, validFeatures().Validate())
}

func TestFeatures_Validate_EmptyID(t *testing.T) {
	f := validFeatures()
	f.StudentID = ""
	assert.ErrorIs(t, f.Validate(), shared.ErrEmptyStudentID)

	f.StudentID = "STU 001"
	assert.Error(t, f.Validate())
}

func TestFeatures_Validate_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Features)
	}{
		{"negative login frequency", func(f *Features) { f.LoginFrequency = -1 }},
		{"negative session duration", func(f *Features) { f.SessionDuration = -5 }},
		{"negative forum participation", func(f *Features) { f.ForumParticipation = -0.5 }},
		{"access rate above one", func(f *Features) { f.AssignmentAccessRate = 1.2 }},
		{"negative time gap", func(f *Features) { f.TimeGapAvg = -0.1 }},
		{"negative inactivity", func(f *Features) { f.InactivityDays = -3 }},
		{"trend point above 100", func(f *Features) { f.EngagementTrend[4] = 101 }},
		{"sentiment below -1", func(f *Features) { f.SentimentScore = -1.5 }},
		{"too many keywords", func(f *Features) { f.TopKeywords = []string{"a", "b", "c", "d"} }},
		{"quiz above 100", func(f *Features) { f.QuizAvg = 140 }},
		{"assignment below zero", func(f *Features) { f.AssignmentAvg = -2 }},
		{"exam above 100", func(f *Features) { f.ExamAvg = 100.5 }},
		{"eti above 100", func(f *Features) { f.ETIScore = 111 }},
		{"negative time spent", func(f *Features) { f.TimeSpentHours = -10 }},
		{"progress above 100", func(f *Features) { f.ProgressPct = 150 }},
		{"gpa above 4", func(f *Features) { f.HistoricalGPA = 4.5 }},
		{"actual score above 100", func(f *Features) {
			v := 105.0
			f.ActualScore = &v
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeatures()
			tt.mutate(f)
			assert.Error(t, f.Validate())
		})
	}
}

func TestFeatures_Validate_ShortTrendIsAllowed(t *testing.T) {
	f := validFeatures()
	f.EngagementTrend = []float64{50, 60}
	assert.NoError(t, f.Validate())

	f.EngagementTrend = nil
	assert.NoError(t, f.Validate())
}

func TestFeatures_Clone_DeepCopy(t *testing.T) {
	orig := validFeatures()
	clone := orig.Clone()

	require.NotSame(t, orig, clone)
	assert.Equal(t, orig, clone)

	clone.EngagementTrend[0] = 99
	clone.TopKeywords[0] = "mutated"
	*clone.ActualScore = 1

	assert.Equal(t, 55.0, orig.EngagementTrend[0])
	assert.Equal(t, "helpful", orig.TopKeywords[0])
	assert.Equal(t, 72.5, *orig.ActualScore)
}

func TestFeatures_Clone_Nil(t *testing.T) {
	var f *Features
	assert.Nil(t, f.Clone())
}

func TestDeriveSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  SentimentLabel
	}{
		{0.9, SentimentPositive},
		{0.31, SentimentPositive},
		{0.3, SentimentNeutral},
		{0, SentimentNeutral},
		{-0.3, SentimentNeutral},
		{-0.31, SentimentNegative},
		{-1, SentimentNegative},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveSentimentLabel(tt.score), "score %v", tt.score)
	}
}

func TestID_IsValid(t *testing.T) {
	assert.True(t, ID("STU00042").IsValid())
	assert.False(t, ID("").IsValid())
	assert.False(t, ID("STU 42").IsValid())
	assert.False(t, ID("a\tb").IsValid())
}

func TestGrade_IsPassing(t *testing.T) {
	assert.True(t, GradeA.IsPassing())
	assert.True(t, GradeD.IsPassing())
	assert.False(t, GradeF.IsPassing())
}

// Package scoring реализует скоринговый движок EduPulse: чистые функции,
// отображающие вектор признаков студента в производные оценки,
// классификации и рекомендации. Пакет не хранит состояния.
package scoring

import (
	"fmt"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE (веса и пороги)
// ══════════════════════════════════════════════════════════════════════════════

// EngagementWeights - веса слагаемых композитной вовлечённости.
// Номинально в сумме дают 1.0; отдельные слагаемые могут выходить за свой
// номинальный диапазон до финального clamp - это принятое поведение,
// единственная точка ограничения диапазона сам clamp.
type EngagementWeights struct {
	LoginFrequency     float64 `yaml:"login_frequency"`
	SessionDuration    float64 `yaml:"session_duration"`
	ForumParticipation float64 `yaml:"forum_participation"`
	AssignmentAccess   float64 `yaml:"assignment_access"`
	TimeGap            float64 `yaml:"time_gap"`
	Inactivity         float64 `yaml:"inactivity"`
}

// PredictionWeights - веса слагаемых прогнозируемого балла.
type PredictionWeights struct {
	Quiz       float64 `yaml:"quiz"`
	Assignment float64 `yaml:"assignment"`
	Exam       float64 `yaml:"exam"`
	ETI        float64 `yaml:"eti"`
	Engagement float64 `yaml:"engagement"`
}

// RiskWeights - веса слагаемых риска отчисления.
type RiskWeights struct {
	Inactivity    float64 `yaml:"inactivity"`
	Disengagement float64 `yaml:"disengagement"`
	Sentiment     float64 `yaml:"sentiment"`
}

// Thresholds - границы закрытых классификационных интервалов.
// Интервалы не пересекаются и покрывают весь числовой диапазон.
type Thresholds struct {
	// HighlyEngagedMin - нижняя граница персоны Highly Engaged.
	HighlyEngagedMin float64 `yaml:"highly_engaged_min"`

	// ModeratelyEngagedMin - нижняя граница персоны Moderately Engaged.
	ModeratelyEngagedMin float64 `yaml:"moderately_engaged_min"`

	// RiskHighMin - нижняя граница уровня риска High.
	RiskHighMin float64 `yaml:"risk_high_min"`

	// RiskMediumMin - нижняя граница уровня риска Medium.
	RiskMediumMin float64 `yaml:"risk_medium_min"`

	// GradeAMin, GradeBMin, GradeCMin, GradeDMin - нижние границы оценок;
	// всё ниже GradeDMin - это F.
	GradeAMin float64 `yaml:"grade_a_min"`
	GradeBMin float64 `yaml:"grade_b_min"`
	GradeCMin float64 `yaml:"grade_c_min"`
	GradeDMin float64 `yaml:"grade_d_min"`
}

// WeakAreaThresholds - пороги детектирования слабых зон.
type WeakAreaThresholds struct {
	// QuizBelow - квизы ниже этого балла считаются слабой зоной.
	QuizBelow float64 `yaml:"quiz_below"`

	// AssignmentBelow - задания ниже этого балла считаются слабой зоной.
	AssignmentBelow float64 `yaml:"assignment_below"`

	// ForumBelow - участие в форуме ниже этого уровня считается слабой зоной.
	ForumBelow float64 `yaml:"forum_below"`

	// InactivityAbove - неактивность дольше этого числа дней считается
	// слабой зоной.
	InactivityAbove int `yaml:"inactivity_above"`
}

// Profile объединяет все настраиваемые параметры движка. Значения по
// умолчанию соответствуют эталонной модели; профиль может быть
// перенастроен через YAML-файл (см. пакет config).
type Profile struct {
	// Name - человекочитаемое имя профиля для логов и событий.
	Name string `yaml:"name"`

	Engagement EngagementWeights  `yaml:"engagement_weights"`
	Prediction PredictionWeights  `yaml:"prediction_weights"`
	Risk       RiskWeights        `yaml:"risk_weights"`
	Thresholds Thresholds         `yaml:"thresholds"`
	WeakAreas  WeakAreaThresholds `yaml:"weak_areas"`
}

// DefaultProfile возвращает эталонный профиль скоринга.
func DefaultProfile() Profile {
	return Profile{
		Name: "reference",
		Engagement: EngagementWeights{
			LoginFrequency:     0.20,
			SessionDuration:    0.15,
			ForumParticipation: 0.15,
			AssignmentAccess:   0.20,
			TimeGap:            0.15,
			Inactivity:         0.15,
		},
		Prediction: PredictionWeights{
			Quiz:       0.25,
			Assignment: 0.25,
			Exam:       0.30,
			ETI:        0.10,
			Engagement: 0.10,
		},
		Risk: RiskWeights{
			Inactivity:    0.40,
			Disengagement: 0.40,
			Sentiment:     0.20,
		},
		Thresholds: Thresholds{
			HighlyEngagedMin:     70,
			ModeratelyEngagedMin: 40,
			RiskHighMin:          60,
			RiskMediumMin:        30,
			GradeAMin:            90,
			GradeBMin:            80,
			GradeCMin:            70,
			GradeDMin:            60,
		},
		WeakAreas: WeakAreaThresholds{
			QuizBelow:       60,
			AssignmentBelow: 60,
			ForumBelow:      2,
			InactivityAbove: 7,
		},
	}
}

// Validate проверяет согласованность профиля: неотрицательные веса и
// строго упорядоченные границы интервалов (иначе закрытое покрытие
// диапазона нарушается).
func (p Profile) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"engagement.login_frequency", p.Engagement.LoginFrequency},
		{"engagement.session_duration", p.Engagement.SessionDuration},
		{"engagement.forum_participation", p.Engagement.ForumParticipation},
		{"engagement.assignment_access", p.Engagement.AssignmentAccess},
		{"engagement.time_gap", p.Engagement.TimeGap},
		{"engagement.inactivity", p.Engagement.Inactivity},
		{"prediction.quiz", p.Prediction.Quiz},
		{"prediction.assignment", p.Prediction.Assignment},
		{"prediction.exam", p.Prediction.Exam},
		{"prediction.eti", p.Prediction.ETI},
		{"prediction.engagement", p.Prediction.Engagement},
		{"risk.inactivity", p.Risk.Inactivity},
		{"risk.disengagement", p.Risk.Disengagement},
		{"risk.sentiment", p.Risk.Sentiment},
	}
	for _, w := range weights {
		if w.value < 0 {
			return shared.WrapError("scoring", "ValidateProfile", shared.ErrInvalidInput,
				fmt.Sprintf("weight %s is negative", w.name), nil)
		}
	}

	t := p.Thresholds
	if !(0 < t.ModeratelyEngagedMin && t.ModeratelyEngagedMin < t.HighlyEngagedMin && t.HighlyEngagedMin <= 100) {
		return shared.WrapError("scoring", "ValidateProfile", shared.ErrInvalidInput,
			"persona thresholds must satisfy 0 < moderately < highly <= 100", nil)
	}
	if !(0 < t.RiskMediumMin && t.RiskMediumMin < t.RiskHighMin && t.RiskHighMin <= 100) {
		return shared.WrapError("scoring", "ValidateProfile", shared.ErrInvalidInput,
			"risk thresholds must satisfy 0 < medium < high <= 100", nil)
	}
	if !(t.GradeDMin < t.GradeCMin && t.GradeCMin < t.GradeBMin && t.GradeBMin < t.GradeAMin) {
		return shared.WrapError("scoring", "ValidateProfile", shared.ErrInvalidInput,
			"grade thresholds must satisfy D < C < B < A", nil)
	}

	wa := p.WeakAreas
	if wa.QuizBelow < 0 || wa.AssignmentBelow < 0 || wa.ForumBelow < 0 || wa.InactivityAbove < 0 {
		return shared.WrapError("scoring", "ValidateProfile", shared.ErrInvalidInput,
			"weak area thresholds cannot be negative", nil)
	}

	return nil
}

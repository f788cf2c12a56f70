package student

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFICATION ENUMS
// Закрытые перечисления: каждое числовое значение попадает ровно в один
// интервал, неопределённых зон нет.
// ══════════════════════════════════════════════════════════════════════════════

// Persona определяет дискретный уровень вовлечённости студента.
type Persona string

const (
	// PersonaHighlyEngaged - engagement_score в [70, 100].
	PersonaHighlyEngaged Persona = "Highly Engaged"
	// PersonaModeratelyEngaged - engagement_score в [40, 70).
	PersonaModeratelyEngaged Persona = "Moderately Engaged"
	// PersonaAtRisk - engagement_score в [0, 40).
	PersonaAtRisk Persona = "At-risk"
)

// IsValid проверяет, что персона корректна.
func (p Persona) IsValid() bool {
	switch p {
	case PersonaHighlyEngaged, PersonaModeratelyEngaged, PersonaAtRisk:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление персоны.
func (p Persona) String() string {
	return string(p)
}

// RiskLevel определяет дискретный уровень риска отчисления.
type RiskLevel string

const (
	// RiskLow - dropout_risk_score в [0, 30).
	RiskLow RiskLevel = "Low"
	// RiskMedium - dropout_risk_score в [30, 60).
	RiskMedium RiskLevel = "Medium"
	// RiskHigh - dropout_risk_score в [60, 100].
	RiskHigh RiskLevel = "High"
)

// IsValid проверяет, что уровень риска корректен.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление уровня риска.
func (r RiskLevel) String() string {
	return string(r)
}

// Grade определяет буквенную оценку прогнозируемого балла.
type Grade string

const (
	GradeA Grade = "A" // predicted_score >= 90
	GradeB Grade = "B" // predicted_score >= 80
	GradeC Grade = "C" // predicted_score >= 70
	GradeD Grade = "D" // predicted_score >= 60
	GradeF Grade = "F" // всё остальное
)

// IsValid проверяет, что оценка корректна.
func (g Grade) IsValid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return true
	default:
		return false
	}
}

// IsPassing возвращает true, если оценка проходная (не F).
func (g Grade) IsPassing() bool {
	return g != GradeF
}

// String возвращает строковое представление оценки.
func (g Grade) String() string {
	return string(g)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION
// ══════════════════════════════════════════════════════════════════════════════

// ContentType определяет тип рекомендуемого учебного контента.
type ContentType string

const (
	ContentQuiz             ContentType = "Quiz"
	ContentAssignment       ContentType = "Assignment"
	ContentCourseModule     ContentType = "Course Module"
	ContentVideoLecture     ContentType = "Video Lecture"
	ContentPracticeExercise ContentType = "Practice Exercise"
)

// IsValid проверяет, что тип контента корректен.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentQuiz, ContentAssignment, ContentCourseModule,
		ContentVideoLecture, ContentPracticeExercise:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа контента.
func (c ContentType) String() string {
	return string(c)
}

// Recommendation - рекомендация по улучшению, привязанная к слабой зоне
// студента. Генерируется детерминированно при скоринге.
type Recommendation struct {
	// ID - идентификатор, уникальный в рамках студента.
	ID string `json:"id"`

	// Title - заголовок рекомендации.
	Title string `json:"title"`

	// Type - тип учебного контента.
	Type ContentType `json:"type"`

	// ExpectedGain - ожидаемый прирост в баллах (> 0).
	ExpectedGain float64 `json:"expected_gain"`

	// EstimatedMinutes - оценка времени на выполнение (> 0).
	EstimatedMinutes int `json:"estimated_minutes"`

	// Explanation - пояснение, почему рекомендация полезна.
	Explanation string `json:"explanation"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORED STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Scored - снимок студента с производными полями. Все производные поля
// пересчитываются вместе одним вызовом движка и никогда не бывают
// частично устаревшими: снимок заменяется целиком.
type Scored struct {
	Features

	// EngagementScore - композитная вовлечённость (0-100, после clamp).
	EngagementScore float64 `json:"engagement_score"`

	// EngagementPersona - дискретный уровень вовлечённости.
	EngagementPersona Persona `json:"engagement_persona"`

	// PredictedScore - прогнозируемый балл (без clamp, практически 0-100+).
	PredictedScore float64 `json:"predicted_score"`

	// PredictedGrade - буквенная оценка прогнозируемого балла.
	PredictedGrade Grade `json:"predicted_grade"`

	// DropoutRiskScore - композитный риск отчисления (0-100, после clamp).
	DropoutRiskScore float64 `json:"dropout_risk_score"`

	// RiskLevel - дискретный уровень риска.
	RiskLevel RiskLevel `json:"risk_level"`

	// Recommendations - рекомендации, сгенерированные при скоринге.
	Recommendations []Recommendation `json:"recommendations"`
}

// Clone создаёт глубокую копию снимка.
func (s *Scored) Clone() *Scored {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Features = *s.Features.Clone()
	clone.Recommendations = append([]Recommendation(nil), s.Recommendations...)
	return &clone
}

// String возвращает строковое представление снимка для логирования.
func (s *Scored) String() string {
	return fmt.Sprintf(
		"Scored{ID: %s, Engagement: %.1f (%s), Predicted: %.1f (%s), Risk: %.1f (%s)}",
		s.StudentID, s.EngagementScore, s.EngagementPersona,
		s.PredictedScore, s.PredictedGrade, s.DropoutRiskScore, s.RiskLevel,
	)
}

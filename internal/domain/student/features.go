// Package student содержит доменную модель студента EduPulse.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"fmt"
	"strings"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID представляет уникальный идентификатор студента (например, "STU00042").
type ID string

// IsValid проверяет, что идентификатор не пустой и без пробелов.
func (id ID) IsValid() bool {
	s := string(id)
	return len(s) > 0 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление идентификатора.
func (id ID) String() string {
	return string(id)
}

// Rate представляет долю в диапазоне [0, 1].
type Rate float64

// IsValid проверяет, что доля лежит в [0, 1].
func (r Rate) IsValid() bool {
	return r >= 0 && r <= 1
}

// Percent представляет процентное значение в диапазоне [0, 100].
type Percent float64

// IsValid проверяет, что процент лежит в [0, 100].
func (p Percent) IsValid() bool {
	return p >= 0 && p <= 100
}

// GPA представляет средний балл в диапазоне [0, 4].
type GPA float64

// IsValid проверяет, что GPA лежит в [0, 4].
func (g GPA) IsValid() bool {
	return g >= 0 && g <= 4
}

// TrendWeeks - фиксированная арность недельного тренда вовлечённости.
// Двенадцать недель нужны агрегатору для сравнимости между студентами;
// более короткие последовательности допустимы и деградируют мягко.
const TrendWeeks = 12

// MaxTopKeywords - максимальное количество ключевых слов обратной связи.
const MaxTopKeywords = 3

// ══════════════════════════════════════════════════════════════════════════════
// SENTIMENT
// ══════════════════════════════════════════════════════════════════════════════

// SentimentLabel определяет дискретную метку тональности обратной связи.
type SentimentLabel string

const (
	// SentimentPositive - тональность выше 0.3.
	SentimentPositive SentimentLabel = "positive"
	// SentimentNeutral - тональность в пределах [-0.3, 0.3].
	SentimentNeutral SentimentLabel = "neutral"
	// SentimentNegative - тональность ниже -0.3.
	SentimentNegative SentimentLabel = "negative"
)

// IsValid проверяет, что метка корректна.
func (l SentimentLabel) IsValid() bool {
	switch l {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	default:
		return false
	}
}

// DeriveSentimentLabel вычисляет метку тональности из численной оценки.
// Пороги: >0.3 positive, <-0.3 negative, иначе neutral.
func DeriveSentimentLabel(score float64) SentimentLabel {
	switch {
	case score > 0.3:
		return SentimentPositive
	case score < -0.3:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FEATURES (входной вектор признаков)
// ══════════════════════════════════════════════════════════════════════════════

// Features - неизменяемый вектор поведенческих и академических признаков
// студента. Создаётся один раз при загрузке; все производные поля
// вычисляются скоринговым движком и никогда не хранятся здесь.
type Features struct {
	// StudentID - уникальный идентификатор студента.
	StudentID ID `json:"student_id"`

	// ─── Поведение ───

	// LoginFrequency - входов в неделю (>= 0, сверху не ограничено).
	LoginFrequency float64 `json:"login_frequency"`

	// SessionDuration - средняя длительность сессии в минутах (>= 0).
	SessionDuration float64 `json:"session_duration"`

	// ForumParticipation - постов на форуме в неделю (>= 0).
	ForumParticipation float64 `json:"forum_participation"`

	// AssignmentAccessRate - доля открытых заданий (0-1).
	AssignmentAccessRate Rate `json:"assignment_access_rate"`

	// TimeGapAvg - средний разрыв между активностями в днях (>= 0).
	TimeGapAvg float64 `json:"time_gap_avg"`

	// InactivityDays - дней с последней активности (>= 0).
	InactivityDays int `json:"inactivity_days"`

	// EngagementTrend - недельные значения вовлечённости (0-100),
	// от старых к новым, номинально TrendWeeks записей.
	EngagementTrend []float64 `json:"engagement_trend"`

	// ─── Тональность ───

	// FeedbackTexts - тексты обратной связи студента.
	FeedbackTexts []string `json:"feedback_texts"`

	// SentimentScore - численная тональность (-1..1).
	SentimentScore float64 `json:"sentiment_score"`

	// SentimentLabel - дискретная метка тональности (производная от
	// SentimentScore, вычисляется внешним анализатором при загрузке).
	SentimentLabel SentimentLabel `json:"sentiment_label"`

	// TopKeywords - до трёх ключевых слов обратной связи.
	TopKeywords []string `json:"top_keywords"`

	// ─── Академика ───

	// QuizAvg - средний балл за квизы (0-100).
	QuizAvg Percent `json:"quiz_avg"`

	// AssignmentAvg - средний балл за задания (0-100).
	AssignmentAvg Percent `json:"assignment_avg"`

	// ExamAvg - средний балл за экзамены (0-100).
	ExamAvg Percent `json:"exam_avg"`

	// ETIScore - индекс эффективности вложенного времени (0-100).
	ETIScore Percent `json:"ETI_score"`

	// TimeSpentHours - часов, проведённых в курсе (>= 0).
	TimeSpentHours float64 `json:"time_spent_hours"`

	// ProgressPct - прогресс по программе (0-100).
	ProgressPct Percent `json:"progress_pct"`

	// HistoricalGPA - исторический GPA (0-4).
	HistoricalGPA GPA `json:"historical_gpa"`

	// ActualScore - фактический итоговый балл, если известен (0-100).
	ActualScore *float64 `json:"actual_score,omitempty"`

	// ─── Метаданные ───

	// Program - образовательная программа.
	Program string `json:"program"`

	// LastActivity - время последней активности.
	LastActivity time.Time `json:"last_activity"`
}

// Validate проверяет, что все ограниченные признаки лежат в заявленных
// доменах. Возвращает ошибку вида InvalidFeatureRange для первого
// нарушенного поля; признаки без верхней границы (LoginFrequency и т.п.)
// проверяются только на неотрицательность.
func (f *Features) Validate() error {
	if !f.StudentID.IsValid() {
		return shared.ErrEmptyStudentID
	}
	if f.LoginFrequency < 0 {
		return invalidFeature("login_frequency", f.LoginFrequency, ">= 0")
	}
	if f.SessionDuration < 0 {
		return invalidFeature("session_duration", f.SessionDuration, ">= 0")
	}
	if f.ForumParticipation < 0 {
		return invalidFeature("forum_participation", f.ForumParticipation, ">= 0")
	}
	if !f.AssignmentAccessRate.IsValid() {
		return invalidFeature("assignment_access_rate", float64(f.AssignmentAccessRate), "0-1")
	}
	if f.TimeGapAvg < 0 {
		return invalidFeature("time_gap_avg", f.TimeGapAvg, ">= 0")
	}
	if f.InactivityDays < 0 {
		return invalidFeature("inactivity_days", float64(f.InactivityDays), ">= 0")
	}
	for i, v := range f.EngagementTrend {
		if v < 0 || v > 100 {
			return invalidFeature(fmt.Sprintf("engagement_trend[%d]", i), v, "0-100")
		}
	}
	if f.SentimentScore < -1 || f.SentimentScore > 1 {
		return invalidFeature("sentiment_score", f.SentimentScore, "-1..1")
	}
	if len(f.TopKeywords) > MaxTopKeywords {
		return invalidFeature("top_keywords", float64(len(f.TopKeywords)), "<= 3 entries")
	}
	if !f.QuizAvg.IsValid() {
		return invalidFeature("quiz_avg", float64(f.QuizAvg), "0-100")
	}
	if !f.AssignmentAvg.IsValid() {
		return invalidFeature("assignment_avg", float64(f.AssignmentAvg), "0-100")
	}
	if !f.ExamAvg.IsValid() {
		return invalidFeature("exam_avg", float64(f.ExamAvg), "0-100")
	}
	if !f.ETIScore.IsValid() {
		return invalidFeature("ETI_score", float64(f.ETIScore), "0-100")
	}
	if f.TimeSpentHours < 0 {
		return invalidFeature("time_spent_hours", f.TimeSpentHours, ">= 0")
	}
	if !f.ProgressPct.IsValid() {
		return invalidFeature("progress_pct", float64(f.ProgressPct), "0-100")
	}
	if !f.HistoricalGPA.IsValid() {
		return invalidFeature("historical_gpa", float64(f.HistoricalGPA), "0-4")
	}
	if f.ActualScore != nil && (*f.ActualScore < 0 || *f.ActualScore > 100) {
		return invalidFeature("actual_score", *f.ActualScore, "0-100")
	}
	return nil
}

// invalidFeature строит ошибку InvalidFeatureRange для конкретного поля.
func invalidFeature(field string, value float64, domain string) error {
	return shared.WrapError(
		"student", "Validate", shared.ErrValueOutOfRange,
		fmt.Sprintf("%s=%v outside declared domain %s", field, value, domain),
		nil,
	)
}

// Clone создаёт глубокую копию вектора признаков.
func (f *Features) Clone() *Features {
	if f == nil {
		return nil
	}

	clone := *f
	clone.EngagementTrend = append([]float64(nil), f.EngagementTrend...)
	clone.FeedbackTexts = append([]string(nil), f.FeedbackTexts...)
	clone.TopKeywords = append([]string(nil), f.TopKeywords...)
	if f.ActualScore != nil {
		v := *f.ActualScore
		clone.ActualScore = &v
	}
	return &clone
}

// String возвращает строковое представление признаков для логирования.
func (f *Features) String() string {
	return fmt.Sprintf(
		"Features{ID: %s, Logins: %.1f/wk, Inactive: %dd, Quiz: %.1f, Exam: %.1f}",
		f.StudentID, f.LoginFrequency, f.InactivityDays, f.QuizAvg, f.ExamAvg,
	)
}

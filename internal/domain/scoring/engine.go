package scoring

import (
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// NORMALIZATION CONSTANTS
// Номинальные диапазоны слагаемых вовлечённости. Формула сознательно
// допускает выход отдельных слагаемых за 0-100 до финального clamp
// (например, очень высокая частота входов).
// ══════════════════════════════════════════════════════════════════════════════

const (
	// nominalSessionMinutes - сессия такой длительности даёт полный вклад.
	nominalSessionMinutes = 120.0

	// forumPostFactor - множитель постов на форуме.
	forumPostFactor = 2.0

	// nominalTimeGapDays - разрыв активности, обнуляющий вклад.
	nominalTimeGapDays = 10.0

	// nominalInactivityDays - неактивность, обнуляющая вклад; она же
	// нормирует слагаемое риска отчисления.
	nominalInactivityDays = 30.0
)

// clamp ограничивает x диапазоном [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine - детерминированный скоринговый движок. Не хранит состояния:
// одинаковый вход (и одинаковая стратегия рекомендаций) всегда даёт
// байт-в-байт одинаковый результат.
type Engine struct {
	profile Profile
}

// NewEngine создаёт движок с указанным профилем.
// Возвращает ошибку, если профиль не проходит валидацию.
func NewEngine(profile Profile) (*Engine, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Engine{profile: profile}, nil
}

// Profile возвращает активный профиль движка.
func (e *Engine) Profile() Profile {
	return e.profile
}

// Score вычисляет все производные поля для одного вектора признаков.
// Признаки валидируются; запись с признаком вне заявленного домена
// отклоняется целиком (InvalidFeatureRange). Короткий EngagementTrend
// ошибкой не считается - его деградацию обрабатывает агрегатор.
func (e *Engine) Score(f *student.Features, strategy RecommendStrategy) (*student.Scored, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	engagement := e.engagementScore(f)
	predicted := e.predictedScore(f, engagement)
	risk := e.dropoutRiskScore(f, engagement)

	scored := &student.Scored{
		Features:          *f.Clone(),
		EngagementScore:   engagement,
		EngagementPersona: e.ClassifyPersona(engagement),
		PredictedScore:    predicted,
		PredictedGrade:    e.ClassifyGrade(predicted),
		DropoutRiskScore:  risk,
		RiskLevel:         e.ClassifyRisk(risk),
	}
	scored.Recommendations = GenerateRecommendations(f.StudentID, e.WeakAreas(f), strategy)

	return scored, nil
}

// engagementScore - взвешенная линейная комбинация поведенческих сигналов,
// каждое слагаемое нормируется к вкладу 0-100 до взвешивания.
// Clamp - единственная точка ограничения диапазона.
func (e *Engine) engagementScore(f *student.Features) float64 {
	w := e.profile.Engagement

	raw := f.LoginFrequency*w.LoginFrequency +
		(f.SessionDuration/nominalSessionMinutes)*100*w.SessionDuration +
		f.ForumParticipation*forumPostFactor*w.ForumParticipation +
		float64(f.AssignmentAccessRate)*100*w.AssignmentAccess +
		((nominalTimeGapDays-f.TimeGapAvg)/nominalTimeGapDays)*100*w.TimeGap +
		((nominalInactivityDays-float64(f.InactivityDays))/nominalInactivityDays)*100*w.Inactivity

	return clamp(raw, 0, 100)
}

// predictedScore - прогнозируемый итоговый балл. Не ограничивается clamp:
// значение выше 100 допустимо, буквенная оценка в любом случае выводит
// корректную корзину.
func (e *Engine) predictedScore(f *student.Features, engagement float64) float64 {
	w := e.profile.Prediction

	return float64(f.QuizAvg)*w.Quiz +
		float64(f.AssignmentAvg)*w.Assignment +
		float64(f.ExamAvg)*w.Exam +
		float64(f.ETIScore)*w.ETI +
		(engagement/100)*100*w.Engagement
}

// dropoutRiskScore - композитный риск отчисления из неактивности,
// невовлечённости и негативной тональности.
func (e *Engine) dropoutRiskScore(f *student.Features, engagement float64) float64 {
	w := e.profile.Risk

	raw := (float64(f.InactivityDays)/nominalInactivityDays)*100*w.Inactivity +
		((100-engagement)/100)*100*w.Disengagement +
		((1-f.SentimentScore)/2)*100*w.Sentiment

	return clamp(raw, 0, 100)
}

// ClassifyPersona отображает engagement_score в персону.
// Интервалы закрыты и не пересекаются: [highly, 100] / [moderately, highly) / [0, moderately).
func (e *Engine) ClassifyPersona(score float64) student.Persona {
	t := e.profile.Thresholds
	switch {
	case score >= t.HighlyEngagedMin:
		return student.PersonaHighlyEngaged
	case score >= t.ModeratelyEngagedMin:
		return student.PersonaModeratelyEngaged
	default:
		return student.PersonaAtRisk
	}
}

// ClassifyRisk отображает dropout_risk_score в уровень риска.
func (e *Engine) ClassifyRisk(score float64) student.RiskLevel {
	t := e.profile.Thresholds
	switch {
	case score >= t.RiskHighMin:
		return student.RiskHigh
	case score >= t.RiskMediumMin:
		return student.RiskMedium
	default:
		return student.RiskLow
	}
}

// ClassifyGrade отображает predicted_score в буквенную оценку.
// Нисходящие правооткрытые полосы без clamp.
func (e *Engine) ClassifyGrade(score float64) student.Grade {
	t := e.profile.Thresholds
	switch {
	case score >= t.GradeAMin:
		return student.GradeA
	case score >= t.GradeBMin:
		return student.GradeB
	case score >= t.GradeCMin:
		return student.GradeC
	case score >= t.GradeDMin:
		return student.GradeD
	default:
		return student.GradeF
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WEAK AREAS
// ══════════════════════════════════════════════════════════════════════════════

// Человекочитаемые метки слабых зон.
const (
	WeakAreaQuiz       = "quiz performance"
	WeakAreaAssignment = "assignment completion"
	WeakAreaForum      = "forum engagement"
	WeakAreaActivity   = "consistent activity"
	WeakAreaGeneral    = "general improvement"
)

// WeakAreas детектирует слабые зоны студента для генерации рекомендаций.
// Если ни один флаг не поднят, возвращается единственная общая метка.
func (e *Engine) WeakAreas(f *student.Features) []string {
	wa := e.profile.WeakAreas

	areas := make([]string, 0, 4)
	if float64(f.QuizAvg) < wa.QuizBelow {
		areas = append(areas, WeakAreaQuiz)
	}
	if float64(f.AssignmentAvg) < wa.AssignmentBelow {
		areas = append(areas, WeakAreaAssignment)
	}
	if f.ForumParticipation < wa.ForumBelow {
		areas = append(areas, WeakAreaForum)
	}
	if f.InactivityDays > wa.InactivityAbove {
		areas = append(areas, WeakAreaActivity)
	}

	if len(areas) == 0 {
		return []string{WeakAreaGeneral}
	}
	return areas
}

package population

import (
	"strings"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter - набор предикатов для выборки студентов. Предикаты
// объединяются по И; нулевые значения означают "пропустить всех".
type Filter struct {
	// IDContains - подстрока student_id, регистронезависимо.
	IDContains string

	// Persona - точное совпадение персоны вовлечённости.
	Persona student.Persona

	// RiskLevel - точное совпадение уровня риска.
	RiskLevel student.RiskLevel

	// Grade - точное совпадение прогнозируемой оценки.
	Grade student.Grade

	// MinInactivityDays - нижний порог дней неактивности.
	MinInactivityDays int
}

// IsEmpty сообщает, что ни один предикат не задан.
func (f Filter) IsEmpty() bool {
	return f.IDContains == "" &&
		f.Persona == "" &&
		f.RiskLevel == "" &&
		f.Grade == "" &&
		f.MinInactivityDays <= 0
}

// Matches проверяет студента по всем заданным предикатам.
func (f Filter) Matches(s *student.Scored) bool {
	if f.IDContains != "" &&
		!strings.Contains(strings.ToLower(string(s.StudentID)), strings.ToLower(f.IDContains)) {
		return false
	}
	if f.Persona != "" && s.EngagementPersona != f.Persona {
		return false
	}
	if f.RiskLevel != "" && s.RiskLevel != f.RiskLevel {
		return false
	}
	if f.Grade != "" && s.PredictedGrade != f.Grade {
		return false
	}
	if f.MinInactivityDays > 0 && s.InactivityDays < f.MinInactivityDays {
		return false
	}
	return true
}

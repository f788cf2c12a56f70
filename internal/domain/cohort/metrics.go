// Package cohort реализует агрегатор когорты: KPI-метрики и аномальные
// алерты поверх текущего снимка популяции. Только чтение, без состояния;
// пересчитывается по требованию.
package cohort

import (
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// KPI METRICS
// ══════════════════════════════════════════════════════════════════════════════

// RiskDistribution - распределение студентов по уровням риска.
// Сумма Low + Medium + High всегда равна размеру популяции.
type RiskDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Total возвращает суммарное количество студентов в распределении.
func (d RiskDistribution) Total() int {
	return d.Low + d.Medium + d.High
}

// KPIMetrics - сводные показатели когорты.
type KPIMetrics struct {
	// AvgEngagement - средняя вовлечённость по популяции.
	// Для пустой популяции равна 0 по контракту, а не ошибка деления.
	AvgEngagement float64 `json:"avg_engagement"`

	// AtRiskCount - количество студентов с уровнем риска High.
	AtRiskCount int `json:"at_risk_count"`

	// PredictedPassRate - доля студентов с проходной оценкой, в процентах.
	// Для пустой популяции равна 0.
	PredictedPassRate float64 `json:"predicted_pass_rate"`

	// RiskDistribution - распределение по уровням риска.
	RiskDistribution RiskDistribution `json:"risk_distribution"`

	// TotalStudents - размер популяции.
	TotalStudents int `json:"total_students"`
}

// ComputeKPIMetrics вычисляет сводные показатели по снимку популяции.
func ComputeKPIMetrics(snapshot []*student.Scored) KPIMetrics {
	m := KPIMetrics{TotalStudents: len(snapshot)}
	if len(snapshot) == 0 {
		return m
	}

	var engagementSum float64
	var passCount int

	for _, s := range snapshot {
		engagementSum += s.EngagementScore

		if s.PredictedGrade.IsPassing() {
			passCount++
		}

		switch s.RiskLevel {
		case student.RiskLow:
			m.RiskDistribution.Low++
		case student.RiskMedium:
			m.RiskDistribution.Medium++
		case student.RiskHigh:
			m.RiskDistribution.High++
		}
	}

	m.AvgEngagement = engagementSum / float64(len(snapshot))
	m.AtRiskCount = m.RiskDistribution.High
	m.PredictedPassRate = float64(passCount) / float64(len(snapshot)) * 100

	return m
}

package cohort

import (
	"fmt"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ALERT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// AlertType - тип аномалии на уровне когорты.
type AlertType string

const (
	AlertHighRisk       AlertType = "high_risk"
	AlertInactive       AlertType = "inactive"
	AlertEngagementDrop AlertType = "engagement_drop"
)

// IsValid проверяет корректность типа алерта.
func (t AlertType) IsValid() bool {
	switch t {
	case AlertHighRisk, AlertInactive, AlertEngagementDrop:
		return true
	}
	return false
}

func (t AlertType) String() string {
	return string(t)
}

// Alert - зафиксированная аномалия по когорте. За один скан возникает
// не более одного алерта каждого типа; Count хранит количество
// затронутых студентов.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SCAN CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultInactivityDays - порог неактивности для алерта Inactive.
	DefaultInactivityDays = 7

	// DefaultDropDelta - минимальное падение вовлечённости для
	// алерта EngagementDrop.
	DefaultDropDelta = 10.0

	// trendWindow - размер окна при сравнении начала и конца тренда.
	trendWindow = 3
)

// ScanConfig - параметры правил сканирования.
type ScanConfig struct {
	InactivityDays int
	DropDelta      float64
}

// DefaultScanConfig возвращает пороги по умолчанию.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		InactivityDays: DefaultInactivityDays,
		DropDelta:      DefaultDropDelta,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ALERT SCAN
// ══════════════════════════════════════════════════════════════════════════════

// ScanAlerts проверяет снимок популяции по трём правилам и возвращает
// сработавшие алерты. Timestamp каждого алерта равен времени скана,
// а не времени скоринга затронутых студентов.
func ScanAlerts(snapshot []*student.Scored, cfg ScanConfig, scanTime time.Time) []Alert {
	alerts := make([]Alert, 0, 3)

	if a, ok := scanHighRisk(snapshot, scanTime); ok {
		alerts = append(alerts, a)
	}
	if a, ok := scanInactive(snapshot, cfg, scanTime); ok {
		alerts = append(alerts, a)
	}
	if a, ok := scanEngagementDrop(snapshot, cfg, scanTime); ok {
		alerts = append(alerts, a)
	}

	return alerts
}

// scanHighRisk срабатывает, если в популяции есть хотя бы один студент
// с уровнем риска High.
func scanHighRisk(snapshot []*student.Scored, scanTime time.Time) (Alert, bool) {
	count := 0
	for _, s := range snapshot {
		if s.RiskLevel == student.RiskHigh {
			count++
		}
	}
	if count == 0 {
		return Alert{}, false
	}
	return Alert{
		ID:        "alert-high-risk",
		Type:      AlertHighRisk,
		Message:   fmt.Sprintf("%d students are at high risk of dropping out", count),
		Count:     count,
		Timestamp: scanTime,
	}, true
}

// scanInactive срабатывает, если хотя бы один студент неактивен дольше
// порога InactivityDays.
func scanInactive(snapshot []*student.Scored, cfg ScanConfig, scanTime time.Time) (Alert, bool) {
	count := 0
	for _, s := range snapshot {
		if s.InactivityDays > cfg.InactivityDays {
			count++
		}
	}
	if count == 0 {
		return Alert{}, false
	}
	return Alert{
		ID:        "alert-inactive",
		Type:      AlertInactive,
		Message:   fmt.Sprintf("%d students have been inactive for more than %d days", count, cfg.InactivityDays),
		Count:     count,
		Timestamp: scanTime,
	}, true
}

// scanEngagementDrop сравнивает среднее последних и первых точек тренда
// вовлечённости. Срабатывает, когда недавнее среднее ниже раннего более
// чем на DropDelta. Тренды короче двух точек не учитываются; для
// коротких трендов окно сужается до фактической длины.
func scanEngagementDrop(snapshot []*student.Scored, cfg ScanConfig, scanTime time.Time) (Alert, bool) {
	count := 0
	for _, s := range snapshot {
		if hasEngagementDrop(s.EngagementTrend, cfg.DropDelta) {
			count++
		}
	}
	if count == 0 {
		return Alert{}, false
	}
	return Alert{
		ID:        "alert-engagement-drop",
		Type:      AlertEngagementDrop,
		Message:   fmt.Sprintf("%d students show a significant drop in engagement", count),
		Count:     count,
		Timestamp: scanTime,
	}, true
}

func hasEngagementDrop(trend []float64, delta float64) bool {
	if len(trend) < 2 {
		return false
	}

	window := trendWindow
	if len(trend) < window {
		window = len(trend)
	}

	var earlier, recent float64
	for i := 0; i < window; i++ {
		earlier += trend[i]
		recent += trend[len(trend)-window+i]
	}
	earlier /= float64(window)
	recent /= float64(window)

	return recent < earlier-delta
}

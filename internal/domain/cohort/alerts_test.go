package cohort

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

var scanTime = time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)

func scoredStudent(id string, risk student.RiskLevel, inactivityDays int, trend []float64) *student.Scored {
	return &student.Scored{
		Features: student.Features{
			StudentID:       student.ID(id),
			InactivityDays:  inactivityDays,
			EngagementTrend: trend,
		},
		RiskLevel: risk,
	}
}

func calmStudent(id string) *student.Scored {
	return scoredStudent(id, student.RiskLow, 0, []float64{60, 60, 60, 60, 60, 60})
}

func alertByType(t *testing.T, alerts []Alert, typ AlertType) Alert {
	t.Helper()
	for _, a := range alerts {
		if a.Type == typ {
			return a
		}
	}
	t.Fatalf("no %s alert in %v", typ, alerts)
	return Alert{}
}

func TestScanAlerts_CalmPopulation(t *testing.T) {
	snapshot := []*student.Scored{calmStudent("STU00001"), calmStudent("STU00002")}

	alerts := ScanAlerts(snapshot, DefaultScanConfig(), scanTime)
	assert.Empty(t, alerts)
}

func TestScanAlerts_EmptyPopulation(t *testing.T) {
	alerts := ScanAlerts(nil, DefaultScanConfig(), scanTime)
	assert.Empty(t, alerts)
}

func TestScanAlerts_HighRisk(t *testing.T) {
	snapshot := []*student.Scored{
		calmStudent("STU00001"),
		scoredStudent("STU00002", student.RiskHigh, 0, nil),
		scoredStudent("STU00003", student.RiskHigh, 0, nil),
		scoredStudent("STU00004", student.RiskMedium, 0, nil),
	}

	alerts := ScanAlerts(snapshot, DefaultScanConfig(), scanTime)
	require.Len(t, alerts, 1)

	a := alertByType(t, alerts, AlertHighRisk)
	assert.Equal(t, 2, a.Count)
	assert.Equal(t, scanTime, a.Timestamp)
	assert.Contains(t, a.Message, "2 students")
}

func TestScanAlerts_Inactive_ThresholdIsExclusive(t *testing.T) {
	cfg := DefaultScanConfig() // 7 days

	snapshot := []*student.Scored{
		scoredStudent("STU00001", student.RiskLow, 7, nil), // exactly at threshold: not inactive
		scoredStudent("STU00002", student.RiskLow, 8, nil),
		scoredStudent("STU00003", student.RiskLow, 30, nil),
	}

	alerts := ScanAlerts(snapshot, cfg, scanTime)
	require.Len(t, alerts, 1)

	a := alertByType(t, alerts, AlertInactive)
	assert.Equal(t, 2, a.Count)
}

func TestScanAlerts_EngagementDrop(t *testing.T) {
	// Первые три недели в среднем 80, последние три - 40: падение 40 > 10.
	dropped := scoredStudent("STU00001", student.RiskLow, 0,
		[]float64{80, 80, 80, 70, 60, 50, 45, 42, 40, 40, 40, 40})

	snapshot := []*student.Scored{dropped, calmStudent("STU00002")}

	alerts := ScanAlerts(snapshot, DefaultScanConfig(), scanTime)
	require.Len(t, alerts, 1)

	a := alertByType(t, alerts, AlertEngagementDrop)
	assert.Equal(t, 1, a.Count)
}

func TestHasEngagementDrop(t *testing.T) {
	tests := []struct {
		name  string
		trend []float64
		want  bool
	}{
		{"empty trend", nil, false},
		{"single point", []float64{50}, false},
		{"stable", []float64{60, 60, 60, 60, 60, 60}, false},
		{"drop above delta", []float64{80, 80, 80, 50, 50, 50}, true},
		{"drop exactly at delta", []float64{60, 60, 60, 50, 50, 50}, false},
		{"windows overlap fully on short trends", []float64{80, 50}, false},
		{"four points leave room for a drop", []float64{80, 80, 20, 20}, true},
		{"rise never fires", []float64{30, 40, 50, 60, 70, 80}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasEngagementDrop(tt.trend, DefaultDropDelta))
		})
	}
}

func TestScanAlerts_TunedThresholds(t *testing.T) {
	cfg := ScanConfig{InactivityDays: 14, DropDelta: 30}

	snapshot := []*student.Scored{
		// Inactive under the default 7-day threshold, fine under 14.
		scoredStudent("STU00001", student.RiskLow, 10, nil),
		// A 20-point drop fires at the default delta, not at 30.
		scoredStudent("STU00002", student.RiskLow, 0,
			[]float64{80, 80, 80, 60, 60, 60}),
	}

	assert.Empty(t, ScanAlerts(snapshot, cfg, scanTime))

	snapshot = append(snapshot,
		scoredStudent("STU00003", student.RiskLow, 15, nil),
		scoredStudent("STU00004", student.RiskLow, 0,
			[]float64{90, 90, 90, 40, 40, 40}),
	)

	alerts := ScanAlerts(snapshot, cfg, scanTime)
	require.Len(t, alerts, 2)
	assert.Equal(t, 1, alertByType(t, alerts, AlertInactive).Count)
	assert.Equal(t, 1, alertByType(t, alerts, AlertEngagementDrop).Count)
}

func TestScanAlerts_AtMostOneAlertPerType(t *testing.T) {
	snapshot := make([]*student.Scored, 0, 10)
	for i := 0; i < 10; i++ {
		snapshot = append(snapshot, scoredStudent(
			"STU0000"+string(rune('0'+i)), student.RiskHigh, 20,
			[]float64{90, 90, 90, 20, 20, 20},
		))
	}

	alerts := ScanAlerts(snapshot, DefaultScanConfig(), scanTime)
	require.Len(t, alerts, 3)

	assert.Equal(t, 10, alertByType(t, alerts, AlertHighRisk).Count)
	assert.Equal(t, 10, alertByType(t, alerts, AlertInactive).Count)
	assert.Equal(t, 10, alertByType(t, alerts, AlertEngagementDrop).Count)
}

func TestAlertType_IsValid(t *testing.T) {
	assert.True(t, AlertHighRisk.IsValid())
	assert.True(t, AlertInactive.IsValid())
	assert.True(t, AlertEngagementDrop.IsValid())
	assert.False(t, AlertType("unknown").IsValid())
}

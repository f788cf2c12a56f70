package lms

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse is the generic envelope the LMS export API wraps payloads in.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// HasMore reports whether further pages remain.
func (m *Meta) HasMore() bool {
	return m != nil && m.Page < m.TotalPages
}

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE EXPORT
// ══════════════════════════════════════════════════════════════════════════════

// FeatureRecordDTO is one student row of the LMS feature export.
// The export flattens behavioral, sentiment and academic signals into a
// single record per student; field names follow the LMS export schema.
type FeatureRecordDTO struct {
	StudentID string `json:"student_id"`

	// Behavioral
	LoginFrequency       float64   `json:"login_frequency"`
	SessionDuration      float64   `json:"session_duration"`
	ForumParticipation   float64   `json:"forum_participation"`
	AssignmentAccessRate float64   `json:"assignment_access_rate"`
	TimeGapAvg           float64   `json:"time_gap_avg"`
	InactivityDays       int       `json:"inactivity_days"`
	EngagementTrend      []float64 `json:"engagement_trend"`

	// Sentiment
	FeedbackTexts  []string `json:"feedback_texts"`
	SentimentScore float64  `json:"sentiment_score"`
	TopKeywords    []string `json:"top_keywords"`

	// Academic
	QuizAvg        float64  `json:"quiz_avg"`
	AssignmentAvg  float64  `json:"assignment_avg"`
	ExamAvg        float64  `json:"exam_avg"`
	ETIScore       float64  `json:"ETI_score"`
	TimeSpentHours float64  `json:"time_spent_hours"`
	ProgressPct    float64  `json:"progress_pct"`
	HistoricalGPA  float64  `json:"historical_gpa"`
	ActualScore    *float64 `json:"actual_score,omitempty"`

	// Metadata
	Program      string    `json:"program"`
	LastActivity time.Time `json:"last_activity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeatureExportRequestDTO contains query parameters for the export endpoint.
type FeatureExportRequestDTO struct {
	// Program filters by educational program (empty = all)
	Program string

	// UpdatedSince returns only records modified after the given time
	UpdatedSince *time.Time

	// Page and PerPage control pagination
	Page    int
	PerPage int
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO is the error body the LMS returns on 4xx/5xx.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("lms api error %s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("lms api error %s: %s", e.Code, e.Message)
}

package lms

import (
	"fmt"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - export DTO -> domain Features
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts LMS export records into domain feature vectors.
// The sentiment label is derived here: the export carries only the
// numeric score, the discrete label is our domain's convention.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// FeatureFromDTO maps one export record to a validated Features vector.
func (m *Mapper) FeatureFromDTO(dto *FeatureRecordDTO) (*student.Features, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}

	f := &student.Features{
		StudentID:            student.ID(dto.StudentID),
		LoginFrequency:       dto.LoginFrequency,
		SessionDuration:      dto.SessionDuration,
		ForumParticipation:   dto.ForumParticipation,
		AssignmentAccessRate: student.Rate(dto.AssignmentAccessRate),
		TimeGapAvg:           dto.TimeGapAvg,
		InactivityDays:       dto.InactivityDays,
		EngagementTrend:      append([]float64(nil), dto.EngagementTrend...),
		FeedbackTexts:        append([]string(nil), dto.FeedbackTexts...),
		SentimentScore:       dto.SentimentScore,
		SentimentLabel:       student.DeriveSentimentLabel(dto.SentimentScore),
		TopKeywords:          append([]string(nil), dto.TopKeywords...),
		QuizAvg:              student.Percent(dto.QuizAvg),
		AssignmentAvg:        student.Percent(dto.AssignmentAvg),
		ExamAvg:              student.Percent(dto.ExamAvg),
		ETIScore:             student.Percent(dto.ETIScore),
		TimeSpentHours:       dto.TimeSpentHours,
		ProgressPct:          student.Percent(dto.ProgressPct),
		HistoricalGPA:        student.GPA(dto.HistoricalGPA),
		Program:              dto.Program,
		LastActivity:         dto.LastActivity,
	}

	if dto.ActualScore != nil {
		v := *dto.ActualScore
		f.ActualScore = &v
	}

	// Exports occasionally carry more keywords than the domain keeps.
	if len(f.TopKeywords) > student.MaxTopKeywords {
		f.TopKeywords = f.TopKeywords[:student.MaxTopKeywords]
	}

	if err := f.Validate(); err != nil {
		return nil, &MappingError{
			Message: fmt.Sprintf("record %s failed validation", dto.StudentID),
			Cause:   err,
		}
	}

	return f, nil
}

// FeaturesFromDTOs maps a page of export records, collecting per-record
// errors instead of failing the whole page.
func (m *Mapper) FeaturesFromDTOs(dtos []FeatureRecordDTO) ([]*student.Features, []error) {
	features := make([]*student.Features, 0, len(dtos))
	var errs []error

	for i := range dtos {
		f, err := m.FeatureFromDTO(&dtos[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		features = append(features, f)
	}

	return features, errs
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrNilDTO is returned when mapping a nil record.
var ErrNilDTO = &MappingError{Message: "cannot map nil DTO"}

// MappingError describes a failed DTO-to-domain conversion.
type MappingError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("lms mapping: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("lms mapping: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

package query

import (
	"context"
	"fmt"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/internal/population"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILTER STUDENTS QUERY
// Predicate-based selection over the population. All predicates combine
// with AND; "all" or an empty value disables a predicate.
// ══════════════════════════════════════════════════════════════════════════════

// passAll is the sentinel predicate value that matches everything.
const passAll = "all"

// FilterStudentsQuery selects a subsequence of the population.
type FilterStudentsQuery struct {
	// Search is a case-insensitive substring match on student_id.
	Search string

	// Persona filters by exact engagement persona.
	Persona string

	// RiskLevel filters by exact risk level.
	RiskLevel string

	// Grade filters by exact predicted grade.
	Grade string

	// MinInactivityDays keeps students inactive at least this many days.
	MinInactivityDays int

	// Limit caps the returned page size; 0 means no limit.
	Limit int

	// Offset skips the first N matches.
	Offset int
}

// Validate rejects enum predicates with unknown values. Empty and "all"
// are pass-through.
func (q FilterStudentsQuery) Validate() error {
	if q.Persona != "" && q.Persona != passAll && !student.Persona(q.Persona).IsValid() {
		return shared.NewDomainError("population", "filter", shared.ErrValidation,
			fmt.Sprintf("unknown persona %q", q.Persona))
	}
	if q.RiskLevel != "" && q.RiskLevel != passAll && !student.RiskLevel(q.RiskLevel).IsValid() {
		return shared.NewDomainError("population", "filter", shared.ErrValidation,
			fmt.Sprintf("unknown risk level %q", q.RiskLevel))
	}
	if q.Grade != "" && q.Grade != passAll && !student.Grade(q.Grade).IsValid() {
		return shared.NewDomainError("population", "filter", shared.ErrValidation,
			fmt.Sprintf("unknown grade %q", q.Grade))
	}
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("population", "filter", shared.ErrValidation,
			"limit and offset must be non-negative")
	}
	return nil
}

// toFilter maps the query onto store predicates.
func (q FilterStudentsQuery) toFilter() population.Filter {
	f := population.Filter{
		IDContains:        q.Search,
		MinInactivityDays: q.MinInactivityDays,
	}
	if q.Persona != "" && q.Persona != passAll {
		f.Persona = student.Persona(q.Persona)
	}
	if q.RiskLevel != "" && q.RiskLevel != passAll {
		f.RiskLevel = student.RiskLevel(q.RiskLevel)
	}
	if q.Grade != "" && q.Grade != passAll {
		f.Grade = student.Grade(q.Grade)
	}
	return f
}

// FilterStudentsResult is one page of matches plus the total match count.
type FilterStudentsResult struct {
	Students []*student.Scored
	Total    int
	Limit    int
	Offset   int
}

// PopulationFilterer is the population store as seen by the filter query.
type PopulationFilterer interface {
	Filter(f population.Filter) []*student.Scored
}

// FilterStudentsHandler handles the FilterStudentsQuery.
type FilterStudentsHandler struct {
	store PopulationFilterer
}

// NewFilterStudentsHandler creates a new FilterStudentsHandler.
func NewFilterStudentsHandler(store PopulationFilterer) *FilterStudentsHandler {
	return &FilterStudentsHandler{store: store}
}

// Handle executes the query. No matches is an empty page, not an error.
func (h *FilterStudentsHandler) Handle(ctx context.Context, q FilterStudentsQuery) (*FilterStudentsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	matched := h.store.Filter(q.toFilter())

	result := &FilterStudentsResult{
		Total:  len(matched),
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	if q.Offset >= len(matched) {
		result.Students = []*student.Scored{}
		return result, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	result.Students = matched

	return result, nil
}

// Package query contains read operations (CQRS - Queries).
// Queries never mutate the population; they read the currently published
// snapshot and derive views from it.
package query

import (
	"context"
	"strings"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentQuery requests a single scored student by ID.
type GetStudentQuery struct {
	StudentID string
}

// Validate validates the query.
func (q GetStudentQuery) Validate() error {
	if strings.TrimSpace(q.StudentID) == "" {
		return shared.ErrEmptyStudentID
	}
	return nil
}

// StudentReader is the population store as seen by read queries.
type StudentReader interface {
	Get(id student.ID) (*student.Scored, error)
}

// GetStudentHandler handles the GetStudentQuery.
type GetStudentHandler struct {
	store StudentReader
}

// NewGetStudentHandler creates a new GetStudentHandler.
func NewGetStudentHandler(store StudentReader) *GetStudentHandler {
	return &GetStudentHandler{store: store}
}

// Handle executes the query. A miss surfaces as shared.ErrStudentNotFound.
func (h *GetStudentHandler) Handle(ctx context.Context, q GetStudentQuery) (*student.Scored, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return h.store.Get(student.ID(q.StudentID))
}

// Package http implements the REST API for the EduPulse student insight hub.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edupulse/student-insight-hub/internal/application/command"
	"github.com/edupulse/student-insight-hub/internal/application/query"
	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOT & HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "EduPulse Student Insight Hub API",
		"version":     "v1",
		"description": "Engagement scoring, risk prediction and cohort insights for student populations",
		"endpoints": map[string]string{
			"health":   "/health",
			"students": "/api/v1/students",
			"kpi":      "/api/v1/metrics/kpi",
			"alerts":   "/api/v1/alerts",
			"profile":  "/api/v1/profile",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleFilterStudents handles GET /api/v1/students
func (s *Server) handleFilterStudents(w http.ResponseWriter, r *http.Request) {
	if s.deps.FilterStudentsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Students handler not configured")
		return
	}

	q := query.FilterStudentsQuery{
		Search:            getQueryParam(r, "search", ""),
		Persona:           getQueryParam(r, "persona", ""),
		RiskLevel:         getQueryParam(r, "risk_level", ""),
		Grade:             getQueryParam(r, "grade", ""),
		MinInactivityDays: getQueryParamInt(r, "min_inactivity_days", 0),
		Limit:             getQueryParamInt(r, "limit", 50),
		Offset:            getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.FilterStudentsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err, "failed to filter students")
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.Total,
		Limit:      result.Limit,
		Offset:     result.Offset,
		HasMore:    result.Offset+len(result.Students) < result.Total,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Students, meta)
}

// handleGetStudent handles GET /api/v1/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	if s.deps.GetStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student handler not configured")
		return
	}

	result, err := s.deps.GetStudentHandler.Handle(r.Context(), query.GetStudentQuery{
		StudentID: studentID,
	})
	if err != nil {
		s.writeDomainError(w, err, "failed to get student")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// INSIGHT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetKPIMetrics handles GET /api/v1/metrics/kpi
func (s *Server) handleGetKPIMetrics(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetKPIMetricsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "KPI handler not configured")
		return
	}

	q := query.GetKPIMetricsQuery{
		BypassCache: getQueryParamBool(r, "refresh"),
	}

	result, err := s.deps.GetKPIMetricsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err, "failed to compute KPI metrics")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAlerts handles GET /api/v1/alerts
func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAlertsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Alerts handler not configured")
		return
	}

	q := query.GetAlertsQuery{
		BypassCache: getQueryParamBool(r, "refresh"),
	}

	alerts, err := s.deps.GetAlertsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err, "failed to scan alerts")
		return
	}

	meta := &ResponseMeta{TotalCount: len(alerts)}
	writeJSONWithMeta(w, r, http.StatusOK, alerts, meta)
}

// handleGetProfile handles GET /api/v1/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.ActiveProfile == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Profile accessor not configured")
		return
	}

	profile := s.deps.ActiveProfile()

	// The profile type carries yaml tags, so the canonical wire form
	// stays YAML regardless of transport.
	out, err := yaml.Marshal(profile)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to encode profile")
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// ══════════════════════════════════════════════════════════════════════════════
// POPULATION HANDLERS (mutating)
// ══════════════════════════════════════════════════════════════════════════════

// ingestRequest is the wire form of an ingest batch.
type ingestRequest struct {
	Source  string              `json:"source"`
	Records []*student.Features `json:"records"`
}

// handleIngest handles POST /api/v1/population/ingest.
// Partially rejected batches come back as 207 with the per-record report.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.deps.IngestFeaturesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ingest handler not configured")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload", err.Error())
		return
	}
	defer r.Body.Close()

	if req.Source == "" {
		req.Source = "api"
	}

	cmd := command.IngestFeaturesCommand{
		Records:       req.Records,
		Source:        req.Source,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.IngestFeaturesHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "failed to ingest batch")
		return
	}

	status := http.StatusOK
	if len(result.Report.Rejected) > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, result)
}

// handleRescore handles POST /api/v1/population/rescore
func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	if s.deps.RescorePopulationHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rescore handler not configured")
		return
	}

	cmd := command.RescorePopulationCommand{
		Reason:        "api",
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RescorePopulationHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "failed to rescore population")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleReloadProfile handles PUT /api/v1/profile.
// The body is a YAML scoring profile, same format as the profile file.
func (s *Server) handleReloadProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReloadProfileHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Profile handler not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	profile := scoring.DefaultProfile()
	if err := yaml.Unmarshal(body, &profile); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Invalid YAML profile", err.Error())
		return
	}

	cmd := command.ReloadProfileCommand{
		Profile:       &profile,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.ReloadProfileHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "failed to reload profile")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAssignRecommendation handles POST /api/v1/recommendations/{id}/assign.
// Delivery to the LMS is an external collaborator; the endpoint validates
// that the recommendation exists and acknowledges the assignment.
func (s *Server) handleAssignRecommendation(w http.ResponseWriter, r *http.Request) {
	recID := r.PathValue("id")
	if recID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Recommendation ID is required")
		return
	}

	if s.deps.GetStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student handler not configured")
		return
	}

	// Recommendation IDs embed the owning student: rec-<student_id>-<n>.
	studentID := recommendationOwner(recID)
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed recommendation ID")
		return
	}

	scored, err := s.deps.GetStudentHandler.Handle(r.Context(), query.GetStudentQuery{
		StudentID: studentID,
	})
	if err != nil {
		s.writeDomainError(w, err, "failed to resolve recommendation owner")
		return
	}

	for _, rec := range scored.Recommendations {
		if rec.ID == recID {
			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":            "accepted",
				"recommendation_id": recID,
				"student_id":        studentID,
			})
			return
		}
	}

	writeJSONError(w, http.StatusNotFound, "not_found", "Recommendation not found")
}

// recommendationOwner extracts the student ID from a rec-<id>-<n> string.
func recommendationOwner(recID string) string {
	if !strings.HasPrefix(recID, "rec-") {
		return ""
	}
	rest := strings.TrimPrefix(recID, "rec-")
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, msg string) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		s.logger.Error(msg, logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}

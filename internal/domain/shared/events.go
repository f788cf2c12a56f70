// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Population events
	EventPopulationIngested EventType = "population.ingested"
	EventPopulationRescored EventType = "population.rescored"

	// Scoring events
	EventStudentScored    EventType = "scoring.student_scored"
	EventRecordRejected   EventType = "scoring.record_rejected"
	EventProfileReloaded  EventType = "scoring.profile_reloaded"
	EventRiskLevelChanged EventType = "scoring.risk_level_changed"
	EventPersonaChanged   EventType = "scoring.persona_changed"

	// Cohort events
	EventAlertRaised     EventType = "cohort.alert_raised"
	EventMetricsComputed EventType = "cohort.metrics_computed"

	// System events
	EventFeatureSyncCompleted EventType = "system.feature_sync_completed"
	EventFeatureSyncFailed    EventType = "system.feature_sync_failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events to interested handlers.
type EventPublisher interface {
	// Publish delivers the event to all subscribed handlers.
	Publish(event Event) error
}

// EventBus is a publisher that also manages subscriptions.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error

	// Close shuts the bus down, waiting for in-flight handlers.
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID returns a copy of the event tagged with a correlation ID.
func (e BaseEvent) WithCorrelationID(correlationID string) BaseEvent {
	e.CorrelationID = correlationID
	return e
}

// ══════════════════════════════════════════════════════════════════════════════
// CONCRETE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// PopulationIngestedEvent is emitted after a feature batch has been scored
// and published into the population store.
type PopulationIngestedEvent struct {
	BaseEvent
	BatchID  string `json:"batch_id"`
	Source   string `json:"source"`
	Total    int    `json:"total"`
	Ingested int    `json:"ingested"`
	Rejected int    `json:"rejected"`
}

// NewPopulationIngestedEvent creates a population.ingested event.
func NewPopulationIngestedEvent(batchID, source string, total, ingested, rejected int) *PopulationIngestedEvent {
	return &PopulationIngestedEvent{
		BaseEvent: NewBaseEvent(EventPopulationIngested, batchID),
		BatchID:   batchID,
		Source:    source,
		Total:     total,
		Ingested:  ingested,
		Rejected:  rejected,
	}
}

// Payload implements Event interface.
func (e *PopulationIngestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"batch_id": e.BatchID,
		"source":   e.Source,
		"total":    e.Total,
		"ingested": e.Ingested,
		"rejected": e.Rejected,
	}
}

// PopulationRescoredEvent is emitted after the whole population has been
// re-scored with the current profile.
type PopulationRescoredEvent struct {
	BaseEvent
	Total int `json:"total"`
}

// NewPopulationRescoredEvent creates a population.rescored event.
func NewPopulationRescoredEvent(total int) *PopulationRescoredEvent {
	return &PopulationRescoredEvent{
		BaseEvent: NewBaseEvent(EventPopulationRescored, "population"),
		Total:     total,
	}
}

// Payload implements Event interface.
func (e *PopulationRescoredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"total": e.Total}
}

// AlertRaisedEvent is emitted for every alert produced by a cohort scan.
type AlertRaisedEvent struct {
	BaseEvent
	AlertID   string `json:"alert_id"`
	AlertType string `json:"alert_type"`
	Count     int    `json:"count"`
	Message   string `json:"message"`
}

// NewAlertRaisedEvent creates a cohort.alert_raised event.
func NewAlertRaisedEvent(alertID, alertType, message string, count int) *AlertRaisedEvent {
	return &AlertRaisedEvent{
		BaseEvent: NewBaseEvent(EventAlertRaised, alertID),
		AlertID:   alertID,
		AlertType: alertType,
		Count:     count,
		Message:   message,
	}
}

// Payload implements Event interface.
func (e *AlertRaisedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"alert_id":   e.AlertID,
		"alert_type": e.AlertType,
		"count":      e.Count,
		"message":    e.Message,
	}
}

// RecordRejectedEvent is emitted for every record that failed feature
// validation during ingest.
type RecordRejectedEvent struct {
	BaseEvent
	BatchID   string `json:"batch_id"`
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// NewRecordRejectedEvent creates a scoring.record_rejected event.
func NewRecordRejectedEvent(batchID, studentID, reason string) *RecordRejectedEvent {
	return &RecordRejectedEvent{
		BaseEvent: NewBaseEvent(EventRecordRejected, studentID),
		BatchID:   batchID,
		StudentID: studentID,
		Reason:    reason,
	}
}

// Payload implements Event interface.
func (e *RecordRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"batch_id":   e.BatchID,
		"student_id": e.StudentID,
		"reason":     e.Reason,
	}
}

// ProfileReloadedEvent is emitted after a new scoring profile has been
// loaded and installed into the engine.
type ProfileReloadedEvent struct {
	BaseEvent
	ProfileName string `json:"profile_name"`
	Rescored    int    `json:"rescored"`
}

// NewProfileReloadedEvent creates a scoring.profile_reloaded event.
func NewProfileReloadedEvent(profileName string, rescored int) *ProfileReloadedEvent {
	return &ProfileReloadedEvent{
		BaseEvent:   NewBaseEvent(EventProfileReloaded, profileName),
		ProfileName: profileName,
		Rescored:    rescored,
	}
}

// Payload implements Event interface.
func (e *ProfileReloadedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_name": e.ProfileName,
		"rescored":     e.Rescored,
	}
}

// FeatureSyncCompletedEvent is emitted by the worker after a successful
// feature source sync.
type FeatureSyncCompletedEvent struct {
	BaseEvent
	Fetched  int           `json:"fetched"`
	Duration time.Duration `json:"duration"`
}

// NewFeatureSyncCompletedEvent creates a system.feature_sync_completed event.
func NewFeatureSyncCompletedEvent(fetched int, duration time.Duration) *FeatureSyncCompletedEvent {
	return &FeatureSyncCompletedEvent{
		BaseEvent: NewBaseEvent(EventFeatureSyncCompleted, "feature_sync"),
		Fetched:   fetched,
		Duration:  duration,
	}
}

// Payload implements Event interface.
func (e *FeatureSyncCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"fetched":  e.Fetched,
		"duration": e.Duration.String(),
	}
}

// MarshalEvent serializes an event to JSON for logging or transport.
func MarshalEvent(event Event) ([]byte, error) {
	envelope := map[string]interface{}{
		"type":         event.EventType(),
		"occurred_at":  event.OccurredAt(),
		"aggregate_id": event.AggregateID(),
		"payload":      event.Payload(),
	}
	return json.Marshal(envelope)
}

package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRecordCreated     EventType = "record_created"
	EventRecordsSynced     EventType = "records_synced"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventAnalysisFailed    EventType = "analysis_failed"
	EventDraftEdited       EventType = "draft_edited"
	EventRecordDispatched  EventType = "record_dispatched"
)

// Event represents a lifecycle event emitted by the workflow engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RecordID  string      `json:"record_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RecordCreatedPayload payload.
type RecordCreatedPayload struct {
	Source  domain.RecordSource  `json:"source"`
	Type    domain.ComplaintType `json:"complaint_type"`
	Subject string               `json:"subject"`
}

// RecordsSyncedPayload payload.
type RecordsSyncedPayload struct {
	Fetched int      `json:"fetched"`
	Added   int      `json:"added"`
	NewIDs  []string `json:"new_ids"`
}

// AnalysisCompletedPayload payload.
type AnalysisCompletedPayload struct {
	OldStatus       domain.RecordStatus      `json:"old_status"`
	NewStatus       domain.RecordStatus      `json:"new_status"`
	Category        domain.ComplaintCategory `json:"category"`
	Priority        domain.PriorityLevel     `json:"priority"`
	RequiresReview  bool                     `json:"requires_review"`
	ConfidenceScore float64                  `json:"confidence_score"`
}

// AnalysisFailedPayload payload.
type AnalysisFailedPayload struct {
	Reason string `json:"reason"`
}

// DraftEditedPayload payload.
type DraftEditedPayload struct {
	DraftPreview string `json:"draft_preview"`
}

// RecordDispatchedPayload payload.
type RecordDispatchedPayload struct {
	CustomerEmail string              `json:"customer_email"`
	Subject       string              `json:"subject"`
	Source        domain.RecordSource `json:"source"`
	Delivered     bool                `json:"delivered"`
}

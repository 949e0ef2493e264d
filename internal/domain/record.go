package domain

import "time"

// RecordStatus enumerates lifecycle states for complaint records.
type RecordStatus string

const (
	StatusPending      RecordStatus = "PENDING"
	StatusDrafted      RecordStatus = "DRAFTED"
	StatusSent         RecordStatus = "SENT"
	StatusResolved     RecordStatus = "RESOLVED"
	StatusAutoResolved RecordStatus = "AUTO_RESOLVED"
)

// RecordSource indicates provenance; it never changes after creation.
type RecordSource string

const (
	SourcePortal          RecordSource = "PORTAL"
	SourceExternalChannel RecordSource = "EXTERNAL_CHANNEL"
)

// ComplaintType distinguishes grievances from general feedback.
type ComplaintType string

const (
	TypeComplaint ComplaintType = "Complaint"
	TypeFeedback  ComplaintType = "Feedback"
)

// ComplaintCategory enumerates postal complaint classifications.
type ComplaintCategory string

const (
	CategoryDeliveryDelay        ComplaintCategory = "DELIVERY_DELAY"
	CategoryLostPackage          ComplaintCategory = "LOST_PACKAGE"
	CategoryDamagedParcel        ComplaintCategory = "DAMAGED_PARCEL"
	CategoryWrongAddress         ComplaintCategory = "WRONG_ADDRESS"
	CategoryRefundOrCompensation ComplaintCategory = "REFUND_OR_COMPENSATION"
	CategoryStaffBehaviour       ComplaintCategory = "STAFF_BEHAVIOUR"
	CategoryOther                ComplaintCategory = "OTHER"
)

// SentimentLevel enumerates detected customer sentiment.
type SentimentLevel string

const (
	SentimentAngry    SentimentLevel = "ANGRY"
	SentimentUnhappy  SentimentLevel = "UNHAPPY"
	SentimentNeutral  SentimentLevel = "NEUTRAL"
	SentimentPositive SentimentLevel = "POSITIVE"
)

// PriorityLevel enumerates SLA urgency.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "HIGH"
	PriorityNormal PriorityLevel = "NORMAL"
	PriorityLow    PriorityLevel = "LOW"
)

// AnalysisOutcome carries the classification result attached to a record
// once the analysis pipeline commits. It is written whole or not at all.
type AnalysisOutcome struct {
	Category        ComplaintCategory `json:"category"`
	Sentiment       SentimentLevel    `json:"sentiment"`
	Priority        PriorityLevel     `json:"priority"`
	ConfidenceScore float64           `json:"confidence_score"`
	RequiresReview  bool              `json:"requires_review"`
}

// ComplaintRecord is the aggregate tracked through the grievance lifecycle.
// OriginalText and Source are immutable after creation.
type ComplaintRecord struct {
	ID               string           `json:"id"`
	OriginalText     string           `json:"original_text"`
	Subject          string           `json:"subject"`
	CustomerEmail    string           `json:"customer_email"`
	OrderID          *string          `json:"order_id,omitempty"`
	Type             ComplaintType    `json:"type"`
	Source           RecordSource     `json:"source"`
	Status           RecordStatus     `json:"status"`
	Timestamp        time.Time        `json:"timestamp"`
	Analysis         *AnalysisOutcome `json:"analysis,omitempty"`
	FormalEmailDraft string           `json:"formal_email_draft,omitempty"`
}

// HasDraft reports whether a response draft is present.
func (r *ComplaintRecord) HasDraft() bool {
	return r.FormalEmailDraft != ""
}

// AnalysisEligible reports whether the pipeline may run for this record.
// Drafted and Sent records are never re-entered.
func (r *ComplaintRecord) AnalysisEligible() bool {
	return r.Status == StatusPending || r.Status == StatusAutoResolved
}

var allowedTransitions = map[RecordStatus][]RecordStatus{
	StatusPending:      {StatusDrafted, StatusSent, StatusAutoResolved},
	StatusAutoResolved: {StatusDrafted, StatusSent, StatusAutoResolved},
	StatusDrafted:      {StatusSent},
	StatusSent:         {},
	StatusResolved:     {},
}

// CanTransition reports whether the lifecycle allows moving a record
// from one status to another. Transitions only ever move forward.
func CanTransition(current, next RecordStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SubmitComplaintRequest payload.
type SubmitComplaintRequest struct {
	Text    string               `json:"text"`
	Subject string               `json:"subject"`
	Type    domain.ComplaintType `json:"type"`
	OrderID *string              `json:"order_id,omitempty"`
}

// EditDraftRequest payload.
type EditDraftRequest struct {
	Draft string `json:"draft"`
}

// AnalysisResponse mirrors the attached analysis outcome.
type AnalysisResponse struct {
	Category        domain.ComplaintCategory `json:"category"`
	Sentiment       domain.SentimentLevel    `json:"sentiment"`
	Priority        domain.PriorityLevel     `json:"priority"`
	ConfidenceScore float64                  `json:"confidence_score"`
	RequiresReview  bool                     `json:"requires_review"`
}

// RecordResponse provides full record info.
type RecordResponse struct {
	ID               string               `json:"id"`
	OriginalText     string               `json:"original_text"`
	Subject          string               `json:"subject"`
	CustomerEmail    string               `json:"customer_email"`
	OrderID          *string              `json:"order_id,omitempty"`
	Type             domain.ComplaintType `json:"type"`
	Source           domain.RecordSource  `json:"source"`
	Status           domain.RecordStatus  `json:"status"`
	Timestamp        time.Time            `json:"timestamp"`
	Analysis         *AnalysisResponse    `json:"analysis,omitempty"`
	FormalEmailDraft string               `json:"formal_email_draft,omitempty"`
}

// SyncResponse reports newly merged records.
type SyncResponse struct {
	Added   int              `json:"added"`
	Records []RecordResponse `json:"records"`
}

// FromRecord maps a domain record onto the response shape.
func FromRecord(record *domain.ComplaintRecord) RecordResponse {
	resp := RecordResponse{
		ID:               record.ID,
		OriginalText:     record.OriginalText,
		Subject:          record.Subject,
		CustomerEmail:    record.CustomerEmail,
		OrderID:          record.OrderID,
		Type:             record.Type,
		Source:           record.Source,
		Status:           record.Status,
		Timestamp:        record.Timestamp,
		FormalEmailDraft: record.FormalEmailDraft,
	}
	if record.Analysis != nil {
		resp.Analysis = &AnalysisResponse{
			Category:        record.Analysis.Category,
			Sentiment:       record.Analysis.Sentiment,
			Priority:        record.Analysis.Priority,
			ConfidenceScore: record.Analysis.ConfidenceScore,
			RequiresReview:  record.Analysis.RequiresReview,
		}
	}
	return resp
}

// FromRecords maps a record slice, preserving order.
func FromRecords(records []domain.ComplaintRecord) []RecordResponse {
	items := make([]RecordResponse, 0, len(records))
	for i := range records {
		items = append(items, FromRecord(&records[i]))
	}
	return items
}

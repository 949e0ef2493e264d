// Package analysis defines the external analysis-provider boundary:
// classification of complaint text and generation of formal reply drafts.
package analysis

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Result is a complete classification outcome for one complaint text.
type Result struct {
	Category        domain.ComplaintCategory
	Sentiment       domain.SentimentLevel
	Priority        domain.PriorityLevel
	Response        string
	RequiresReview  bool
	ConfidenceScore float64
}

// Outcome converts the result into the form attached to a record.
func (r *Result) Outcome() *domain.AnalysisOutcome {
	return &domain.AnalysisOutcome{
		Category:        r.Category,
		Sentiment:       r.Sentiment,
		Priority:        r.Priority,
		ConfidenceScore: r.ConfidenceScore,
		RequiresReview:  r.RequiresReview,
	}
}

// Provider is the analysis collaborator. Analyze failures surface as
// ANALYSIS_FAILED, Draft failures as GENERATION_FAILED; callers never see
// partial results.
type Provider interface {
	Analyze(ctx context.Context, text string) (*Result, error)
	Draft(ctx context.Context, text string, category domain.ComplaintCategory, sentiment domain.SentimentLevel, priority domain.PriorityLevel, languageTag string) (string, error)
}

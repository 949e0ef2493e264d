// Package workflow implements the complaint lifecycle engine: intake, sync,
// staged analysis, review and dispatch.
package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/analysis"
	"github.com/spec-kit/grievance-service/internal/channel"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/store"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// Engine coordinates complaint record workflows. All status changes go
// through here; the store only ever sees whole-record replacements.
type Engine struct {
	store      *store.RecordStore
	provider   analysis.Provider
	channel    channel.Channel
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	observer   StageObserver

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	Store      *store.RecordStore
	Provider   analysis.Provider
	Channel    channel.Channel
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Option customizes engine construction.
type Option func(*Engine)

// WithStageObserver registers a callback invoked as each pipeline stage begins.
func WithStageObserver(observer StageObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// NewEngine constructs the workflow engine.
func NewEngine(deps Dependencies, opts ...Option) *Engine {
	e := &Engine{
		store:      deps.Store,
		provider:   deps.Provider,
		channel:    deps.Channel,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		inflight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitInput describes a citizen portal submission.
type SubmitInput struct {
	Text          string
	Subject       string
	Type          domain.ComplaintType
	CustomerEmail string
	OrderID       *string
}

// Submit validates the submission and registers a Pending portal record.
// Analysis runs as a separate engine call.
func (e *Engine) Submit(ctx context.Context, input SubmitInput) (*domain.ComplaintRecord, error) {
	missing := map[string]any{}
	if strings.TrimSpace(input.Text) == "" {
		missing["text"] = "required"
	}
	if strings.TrimSpace(input.Subject) == "" {
		missing["subject"] = "required"
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		missing["customer_email"] = "required"
	}
	if input.Type != domain.TypeComplaint && input.Type != domain.TypeFeedback {
		missing["type"] = "must be Complaint or Feedback"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("invalid submission", missing)
	}

	record := domain.ComplaintRecord{
		ID:            uuid.NewString(),
		OriginalText:  strings.TrimSpace(input.Text),
		Subject:       strings.TrimSpace(input.Subject),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		OrderID:       input.OrderID,
		Type:          input.Type,
		Source:        domain.SourcePortal,
		Status:        domain.StatusPending,
		Timestamp:     time.Now(),
	}
	e.store.Upsert(record)

	e.publishEvent(ctx, events.Event{
		Type:     events.EventRecordCreated,
		RecordID: record.ID,
		Payload: events.RecordCreatedPayload{
			Source:  record.Source,
			Type:    record.Type,
			Subject: record.Subject,
		},
	})
	return &record, nil
}

// Sync pulls the inbound feed and merges new complaints into the store,
// deduplicating by id. The store is untouched when the channel is unreachable.
func (e *Engine) Sync(ctx context.Context) ([]domain.ComplaintRecord, error) {
	messages, err := e.channel.FetchInbound(ctx)
	if err != nil {
		return nil, asChannelUnreachable(err)
	}

	// Upsert in reverse so the feed's own order ends up most-recent-first
	// ahead of existing history.
	added := make([]domain.ComplaintRecord, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.ID == "" || e.store.Has(msg.ID) {
			continue
		}
		timestamp := msg.Timestamp
		if timestamp.IsZero() {
			timestamp = time.Now()
		}
		record := domain.ComplaintRecord{
			ID:            msg.ID,
			OriginalText:  msg.OriginalText,
			Subject:       msg.Subject,
			CustomerEmail: msg.CustomerEmail,
			Type:          domain.TypeComplaint,
			Source:        domain.SourceExternalChannel,
			Status:        domain.StatusPending,
			Timestamp:     timestamp,
		}
		e.store.Upsert(record)
		added = append([]domain.ComplaintRecord{record}, added...)
	}

	newIDs := make([]string, 0, len(added))
	for _, record := range added {
		newIDs = append(newIDs, record.ID)
	}
	e.publishEvent(ctx, events.Event{
		Type: events.EventRecordsSynced,
		Payload: events.RecordsSyncedPayload{
			Fetched: len(messages),
			Added:   len(added),
			NewIDs:  newIDs,
		},
	})
	return added, nil
}

// Analyze runs the staged pipeline for one record. Only Pending and
// AutoResolved records are eligible; at most one run per id is in flight.
// The merged update commits atomically or not at all.
func (e *Engine) Analyze(ctx context.Context, id string) (*domain.ComplaintRecord, error) {
	record, ok := e.store.Get(id)
	if !ok {
		return nil, apperrors.NewNotFound("record", map[string]any{"id": id})
	}
	if !record.AnalysisEligible() {
		return nil, apperrors.NewConflict("record not eligible for analysis",
			map[string]any{"status": record.Status})
	}
	if !e.beginAnalysis(id) {
		return nil, apperrors.NewAnalysisInFlight(id)
	}
	defer e.endAnalysis(id)

	updated, err := e.runPipeline(ctx, record)
	if err != nil {
		e.metrics.RecordAnalysis(false)
		e.publishEvent(ctx, events.Event{
			Type:     events.EventAnalysisFailed,
			RecordID: id,
			Payload:  events.AnalysisFailedPayload{Reason: err.Error()},
		})
		return nil, err
	}

	// Compute-then-commit: the store sees one whole-record replacement.
	e.store.Upsert(*updated)
	e.metrics.RecordAnalysis(true)
	e.publishEvent(ctx, events.Event{
		Type:     events.EventAnalysisCompleted,
		RecordID: id,
		Payload: events.AnalysisCompletedPayload{
			OldStatus:       record.Status,
			NewStatus:       updated.Status,
			Category:        updated.Analysis.Category,
			Priority:        updated.Analysis.Priority,
			RequiresReview:  updated.Analysis.RequiresReview,
			ConfidenceScore: updated.Analysis.ConfidenceScore,
		},
	})
	return updated, nil
}

func (e *Engine) runPipeline(ctx context.Context, record domain.ComplaintRecord) (*domain.ComplaintRecord, error) {
	e.enterStage(record.ID, StageCollection)
	e.enterStage(record.ID, StagePreprocessing)
	e.enterStage(record.ID, StageNLPEngine)

	result, err := e.provider.Analyze(ctx, record.OriginalText)
	if err != nil {
		return nil, err
	}

	e.enterStage(record.ID, StageClassification)
	e.enterStage(record.ID, StageSentiment)

	draft, err := e.provider.Draft(ctx, record.OriginalText, result.Category, result.Sentiment, result.Priority, e.store.Locale())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft) == "" {
		return nil, apperrors.NewGenerationError("draft generation returned empty text", nil)
	}

	updated := record
	updated.Analysis = result.Outcome()
	updated.FormalEmailDraft = draft

	switch {
	case result.RequiresReview:
		// Human sign-off required; keep the submission timestamp for SLA tracking.
		updated.Status = domain.StatusDrafted
	case record.Source == domain.SourceExternalChannel:
		// Auto-dispatch before commit; a failed delivery aborts the whole run.
		if err := e.channel.Deliver(ctx, record.CustomerEmail, "[Auto-Response] "+record.Subject, draft); err != nil {
			return nil, asChannelError(err)
		}
		updated.Status = domain.StatusSent
		updated.Timestamp = time.Now()
	default:
		updated.Status = domain.StatusAutoResolved
		updated.Timestamp = time.Now()
	}

	if !domain.CanTransition(record.Status, updated.Status) {
		return nil, apperrors.NewInvalidTransition(string(record.Status), string(updated.Status))
	}
	return &updated, nil
}

// EditDraft replaces the response draft. Dispatched records are immutable.
func (e *Engine) EditDraft(ctx context.Context, id, text string) (*domain.ComplaintRecord, error) {
	record, ok := e.store.Get(id)
	if !ok {
		return nil, apperrors.NewNotFound("record", map[string]any{"id": id})
	}
	if record.Status == domain.StatusSent {
		return nil, apperrors.NewConflict("record already dispatched; draft can no longer be edited",
			map[string]any{"status": record.Status})
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("draft text required", nil)
	}

	record.FormalEmailDraft = text
	e.store.Upsert(record)

	e.publishEvent(ctx, events.Event{
		Type:     events.EventDraftEdited,
		RecordID: id,
		Payload:  events.DraftEditedPayload{DraftPreview: stringPreview(text, 120)},
	})
	return &record, nil
}

// Dispatch delivers the reviewed draft and moves the record to Sent.
// Delivery is all-or-nothing: a channel failure leaves the record Drafted.
func (e *Engine) Dispatch(ctx context.Context, id string) (*domain.ComplaintRecord, error) {
	record, ok := e.store.Get(id)
	if !ok {
		return nil, apperrors.NewNotFound("record", map[string]any{"id": id})
	}
	if record.Status != domain.StatusDrafted {
		return nil, apperrors.NewInvalidTransition(string(record.Status), string(domain.StatusSent))
	}
	if !record.HasDraft() {
		return nil, apperrors.NewValidationError("cannot dispatch without a response draft", nil)
	}

	delivered := false
	if record.Source == domain.SourceExternalChannel {
		if err := e.channel.Deliver(ctx, record.CustomerEmail, record.Subject, record.FormalEmailDraft); err != nil {
			return nil, asChannelError(err)
		}
		delivered = true
	}

	record.Status = domain.StatusSent
	record.Timestamp = time.Now()
	e.store.Upsert(record)
	e.metrics.RecordDispatch()

	e.publishEvent(ctx, events.Event{
		Type:     events.EventRecordDispatched,
		RecordID: id,
		Payload: events.RecordDispatchedPayload{
			CustomerEmail: record.CustomerEmail,
			Subject:       record.Subject,
			Source:        record.Source,
			Delivered:     delivered,
		},
	})
	return &record, nil
}

func (e *Engine) beginAnalysis(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.inflight[id]; running {
		return false
	}
	e.inflight[id] = struct{}{}
	return true
}

func (e *Engine) endAnalysis(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id)
}

func (e *Engine) enterStage(recordID string, stage Stage) {
	e.metrics.RecordStage(string(stage))
	if e.observer != nil {
		e.observer(recordID, stage)
	}
}

func (e *Engine) publishEvent(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}

func asChannelUnreachable(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewChannelUnreachable(err)
}

func asChannelError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewChannelError(err)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

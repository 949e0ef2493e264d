package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/store"
)

// ArchiveService consumes lifecycle events: every event is logged, and
// dispatched records are mirrored into the Postgres archive when one is
// configured. The snapshot file remains the system of record; archive
// failures are logged and never surfaced to the operator.
type ArchiveService struct {
	store   *store.RecordStore
	archive repository.ArchiveRepository
	logger  *zap.Logger
}

// NewArchiveService creates the service. A nil archive disables mirroring.
func NewArchiveService(recordStore *store.RecordStore, archive repository.ArchiveRepository, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{
		store:   recordStore,
		archive: archive,
		logger:  logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (a *ArchiveService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventRecordCreated, a.logEvent)
	dispatcher.Subscribe(events.EventRecordsSynced, a.logEvent)
	dispatcher.Subscribe(events.EventAnalysisCompleted, a.logEvent)
	dispatcher.Subscribe(events.EventAnalysisFailed, a.logFailure)
	dispatcher.Subscribe(events.EventDraftEdited, a.logEvent)
	dispatcher.Subscribe(events.EventRecordDispatched, a.handleDispatched)
}

func (a *ArchiveService) logEvent(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("record_id", event.RecordID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *ArchiveService) logFailure(ctx context.Context, event events.Event) error {
	a.logger.Warn(string(event.Type),
		zap.String("record_id", event.RecordID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *ArchiveService) handleDispatched(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("record_id", event.RecordID),
		zap.Any("payload", event.Payload))
	if a.archive == nil {
		return nil
	}

	record, ok := a.store.Get(event.RecordID)
	if !ok {
		return nil
	}
	payload, _ := event.Payload.(events.RecordDispatchedPayload)

	entry := &repository.ArchiveEntry{
		RecordID:      record.ID,
		CustomerEmail: record.CustomerEmail,
		Subject:       record.Subject,
		Source:        record.Source,
		ResponseBody:  record.FormalEmailDraft,
		Delivered:     payload.Delivered,
		DispatchedAt:  record.Timestamp,
	}
	if record.Analysis != nil {
		category := record.Analysis.Category
		priority := record.Analysis.Priority
		entry.Category = &category
		entry.Priority = &priority
	}
	if err := a.archive.Create(ctx, entry); err != nil {
		a.logger.Error("failed to archive dispatched record",
			zap.String("record_id", record.ID), zap.Error(err))
	}
	return nil
}

package worker

import (
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/service"
)

// StartArchiveWorker registers archive event handlers.
func StartArchiveWorker(archiveService *service.ArchiveService, dispatcher events.Dispatcher) {
	if archiveService == nil {
		return
	}
	archiveService.RegisterHandlers(dispatcher)
}

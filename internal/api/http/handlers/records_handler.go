package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/store"
	"github.com/spec-kit/grievance-service/internal/workflow"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// RecordsHandler manages officer review endpoints.
type RecordsHandler struct {
	engine *workflow.Engine
	store  *store.RecordStore
}

// NewRecordsHandler constructs handler.
func NewRecordsHandler(engine *workflow.Engine, recordStore *store.RecordStore) *RecordsHandler {
	return &RecordsHandler{engine: engine, store: recordStore}
}

// List GET /records?source= returns history, optionally filtered by source.
func (h *RecordsHandler) List(c *fiber.Ctx) error {
	var records []domain.ComplaintRecord
	switch source := c.Query("source"); source {
	case "":
		records = h.store.List()
	case string(domain.SourcePortal):
		records = h.store.ListBySource(domain.SourcePortal)
	case string(domain.SourceExternalChannel):
		records = h.store.ListBySource(domain.SourceExternalChannel)
	default:
		return apperrors.NewValidationError("unknown source", map[string]any{"source": source})
	}
	return c.JSON(fiber.Map{"data": dto.FromRecords(records)})
}

// Get GET /records/:id.
func (h *RecordsHandler) Get(c *fiber.Ctx) error {
	record, ok := h.store.Get(c.Params("id"))
	if !ok {
		return apperrors.NewNotFound("record", map[string]any{"id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": dto.FromRecord(&record)})
}

// Analyze POST /records/:id/analyze runs the pipeline for an eligible record.
func (h *RecordsHandler) Analyze(c *fiber.Ctx) error {
	record, err := h.engine.Analyze(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRecord(record)})
}

// EditDraft PUT /records/:id/draft replaces the response draft.
func (h *RecordsHandler) EditDraft(c *fiber.Ctx) error {
	var req dto.EditDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.engine.EditDraft(c.Context(), c.Params("id"), req.Draft)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRecord(record)})
}

// Dispatch POST /records/:id/dispatch delivers the reviewed draft.
func (h *RecordsHandler) Dispatch(c *fiber.Ctx) error {
	record, err := h.engine.Dispatch(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRecord(record)})
}

// Sync POST /records/sync merges the inbound feed into the store.
func (h *RecordsHandler) Sync(c *fiber.Ctx) error {
	added, err := h.engine.Sync(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SyncResponse{
		Added:   len(added),
		Records: dto.FromRecords(added),
	}})
}

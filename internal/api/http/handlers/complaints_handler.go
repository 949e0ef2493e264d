package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/store"
	"github.com/spec-kit/grievance-service/internal/workflow"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// ComplaintsHandler manages citizen intake endpoints.
type ComplaintsHandler struct {
	engine *workflow.Engine
	store  *store.RecordStore
	logger *zap.Logger
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(engine *workflow.Engine, recordStore *store.RecordStore, logger *zap.Logger) *ComplaintsHandler {
	return &ComplaintsHandler{engine: engine, store: recordStore, logger: logger}
}

// Submit POST /complaints. Responds with the Pending record immediately;
// analysis runs in the background and the record simply stays Pending if it
// fails, awaiting officer re-initiation.
func (h *ComplaintsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("citizen required")
	}
	var req dto.SubmitComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.engine.Submit(c.Context(), workflow.SubmitInput{
		Text:          req.Text,
		Subject:       req.Subject,
		Type:          req.Type,
		CustomerEmail: principal.Email,
		OrderID:       req.OrderID,
	})
	if err != nil {
		return err
	}

	go func(id string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := h.engine.Analyze(ctx, id); err != nil {
			h.logger.Warn("background analysis failed",
				zap.String("record_id", id), zap.Error(err))
		}
	}(record.ID)

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromRecord(record)})
}

// List GET /complaints returns the caller's own records, most recent first.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("citizen required")
	}
	records := h.store.ListByCustomer(principal.Email)
	return c.JSON(fiber.Map{"data": dto.FromRecords(records)})
}

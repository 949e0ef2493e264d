package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// SessionHandler manages login, logout and locale selection.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CitizenLogin POST /auth/login.
func (h *SessionHandler) CitizenLogin(c *fiber.Ctx) error {
	var req dto.CitizenLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.sessions.LoginCitizen(c.Context(), req.Email, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// OfficerLogin POST /auth/staff/login.
func (h *SessionHandler) OfficerLogin(c *fiber.Ctx) error {
	var req dto.OfficerLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.sessions.LoginOfficer(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// Logout POST /auth/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.sessions.Logout(c.Context())
	return c.SendStatus(http.StatusNoContent)
}

// SetLocale PUT /session/locale.
func (h *SessionHandler) SetLocale(c *fiber.Ctx) error {
	var req dto.LocaleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.sessions.SetLocale(c.Context(), req.Locale); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"locale": req.Locale}})
}

func loginResponse(result *service.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Email:     result.Session.Email,
		Name:      result.Session.Name,
		Role:      result.Session.Role,
	}
}

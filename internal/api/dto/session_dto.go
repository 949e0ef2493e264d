package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// CitizenLoginRequest payload.
type CitizenLoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OfficerLoginRequest payload.
type OfficerLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token and session identity.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
}

// LocaleRequest payload.
type LocaleRequest struct {
	Locale string `json:"locale"`
}

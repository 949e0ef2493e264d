package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/store"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// SessionService handles login, locale selection and the session snapshot.
// The active session and locale are part of the durable store snapshot and,
// when Redis is configured, mirrored to a single last-write-wins key.
type SessionService struct {
	cfg         config.AuthConfig
	tokens      *auth.TokenManager
	store       *store.RecordStore
	redis       *persistence.Redis
	logger      *zap.Logger
	officerHash string
}

// NewSessionService constructs the service, hashing the seeded officer
// credential once at startup.
func NewSessionService(cfg config.AuthConfig, recordStore *store.RecordStore, redis *persistence.Redis, logger *zap.Logger) (*SessionService, error) {
	hash, err := auth.HashPassword(cfg.OfficerPassword, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &SessionService{
		cfg:         cfg,
		tokens:      auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		store:       recordStore,
		redis:       redis,
		logger:      logger,
		officerHash: hash,
	}, nil
}

// TokenManager exposes the manager for middleware wiring.
func (s *SessionService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries a signed token and the captured session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   domain.Session
}

// LoginOfficer authenticates the seeded postal officer account.
func (s *SessionService) LoginOfficer(ctx context.Context, email, password string) (*LoginResult, error) {
	if !strings.EqualFold(strings.TrimSpace(email), s.cfg.OfficerEmail) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(s.officerHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	session := domain.Session{
		Email: s.cfg.OfficerEmail,
		Name:  s.cfg.OfficerName,
		Role:  domain.RoleOfficer,
	}
	return s.open(ctx, session)
}

// LoginCitizen opens a citizen session for the given identity.
func (s *SessionService) LoginCitizen(ctx context.Context, email, name string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email required", nil)
	}
	if strings.TrimSpace(name) == "" {
		name = "Citizen"
	}
	session := domain.Session{
		Email: email,
		Name:  strings.TrimSpace(name),
		Role:  domain.RoleCitizen,
	}
	return s.open(ctx, session)
}

// Logout clears the captured session.
func (s *SessionService) Logout(ctx context.Context) {
	s.store.SetSession(nil)
	s.mirror(ctx)
}

// SetLocale selects the response language tag for generated drafts.
func (s *SessionService) SetLocale(ctx context.Context, tag string) error {
	if !domain.LocaleSupported(tag) {
		return apperrors.NewValidationError("unsupported locale", map[string]any{"locale": tag})
	}
	s.store.SetLocale(tag)
	s.mirror(ctx)
	return nil
}

func (s *SessionService) open(ctx context.Context, session domain.Session) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(session.Email, session.Name, session.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.store.SetSession(&session)
	s.mirror(ctx)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

func (s *SessionService) mirror(ctx context.Context) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Session *domain.Session `json:"session"`
		Locale  string          `json:"locale"`
	}{
		Session: s.store.Session(),
		Locale:  s.store.Locale(),
	})
	if err != nil {
		return
	}
	if err := s.redis.StoreSessionSnapshot(ctx, payload); err != nil {
		s.logger.Warn("failed to mirror session snapshot", zap.Error(err))
	}
}

package auth

import (
	"context"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/chronoplan-io/chronoplan/internal/models"
)

// SessionTTL is how long a browser session cookie stays valid.
const SessionTTL = 24 * time.Hour

// SessionInfo is the typed per-request identity attached to the context by
// the auth middleware. CalendarToken fields are populated only when a handler
// has resolved a usable grant; zero values mean "not loaded", not "absent".
type SessionInfo struct {
	UserID              string
	Email               string
	CalendarAccessToken string
	CalendarTokenExpiry time.Time
}

type sessionKey struct{}

// WithSession returns a context carrying the session info.
func WithSession(ctx context.Context, info SessionInfo) context.Context {
	return context.WithValue(ctx, sessionKey{}, info)
}

// SessionFromContext extracts the session info set by the auth middleware.
func SessionFromContext(ctx context.Context) (SessionInfo, bool) {
	info, ok := ctx.Value(sessionKey{}).(SessionInfo)
	return info, ok
}

// CreateSession mints a random session token and stores it.
func (s *Service) CreateSession(userID string) (string, error) {
	token, err := GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.store.CreateSession(userID, token, time.Now().Add(SessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSession resolves a session token to its session row.
func (s *Service) ValidateSession(token string) (*models.Session, error) {
	return s.store.ValidateSession(token)
}

// DeleteSession logs a session out.
func (s *Service) DeleteSession(token string) error {
	return s.store.DeleteSession(token)
}

// CleanupExpiredSessions removes stale session rows; called periodically.
func (s *Service) CleanupExpiredSessions() error {
	return s.store.CleanupExpiredSessions()
}

// Store exposes the underlying store for handlers that read profile data.
func (s *Service) Store() *database.Store {
	return s.store
}

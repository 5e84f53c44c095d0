package models

import (
	"time"
)

// Session represents a logged-in browser session backed by the sessions table.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

package database

import (
	"errors"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/models"
)

var ErrSessionExpired = errors.New("session expired")

// CreateSession creates a new session for a user
func (s *Store) CreateSession(userID, token string, expiresAt time.Time) error {
	var query string
	if s.dbType == "postgres" {
		query = `INSERT INTO sessions (id, user_id, token, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`
	} else {
		query = `INSERT INTO sessions (id, user_id, token, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`
	}

	_, err := s.db.Exec(query, GenerateID(), userID, token, time.Now().UTC(), expiresAt.UTC())
	return err
}

// ValidateSession retrieves a session by its token, deleting it if expired.
func (s *Store) ValidateSession(token string) (*models.Session, error) {
	var query string
	if s.dbType == "postgres" {
		query = `SELECT id, user_id, token, created_at, expires_at FROM sessions WHERE token = $1`
	} else {
		query = `SELECT id, user_id, token, created_at, expires_at FROM sessions WHERE token = ?`
	}

	var session models.Session
	err := s.db.QueryRow(query, token).Scan(&session.ID, &session.UserID, &session.Token, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		s.DeleteSession(token)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// DeleteSession deletes a session by its token
func (s *Store) DeleteSession(token string) error {
	var query string
	if s.dbType == "postgres" {
		query = `DELETE FROM sessions WHERE token = $1`
	} else {
		query = `DELETE FROM sessions WHERE token = ?`
	}
	_, err := s.db.Exec(query, token)
	return err
}

// CleanupExpiredSessions removes all sessions that have passed their expiry.
func (s *Store) CleanupExpiredSessions() error {
	var query string
	if s.dbType == "postgres" {
		query = `DELETE FROM sessions WHERE expires_at < $1`
	} else {
		query = `DELETE FROM sessions WHERE expires_at < ?`
	}
	_, err := s.db.Exec(query, time.Now().UTC())
	return err
}

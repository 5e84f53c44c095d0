package database

import (
	"database/sql"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/models"
)

const grantColumns = `id, user_id, provider, access_token, refresh_token, expires_at, scope, created_at, updated_at`

func scanGrant(row *sql.Row) (*models.Grant, error) {
	grant := &models.Grant{}
	err := row.Scan(
		&grant.ID, &grant.UserID, &grant.Provider,
		&grant.AccessToken, &grant.RefreshToken, &grant.ExpiresAt, &grant.Scope,
		&grant.CreatedAt, &grant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// GetGrant retrieves the grant for a user and provider. Returns
// sql.ErrNoRows when the user never connected (or disconnected).
func (s *Store) GetGrant(userID, provider string) (*models.Grant, error) {
	var query string
	if s.dbType == "postgres" {
		query = "SELECT " + grantColumns + " FROM oauth_grants WHERE user_id = $1 AND provider = $2"
	} else {
		query = "SELECT " + grantColumns + " FROM oauth_grants WHERE user_id = ? AND provider = ?"
	}
	return scanGrant(s.db.QueryRow(query, userID, provider))
}

// UpsertGrant stores the token set from a completed authorization handshake.
// A repeat handshake for the same (user, provider) overwrites the existing
// row; an empty refresh token keeps the stored one, since the provider only
// reissues it when consent is forced.
func (s *Store) UpsertGrant(grant *models.Grant) error {
	now := time.Now().UTC()
	grant.UpdatedAt = now

	var query string
	if s.dbType == "postgres" {
		query = `INSERT INTO oauth_grants (id, user_id, provider, access_token, refresh_token, expires_at, scope, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id, provider) DO UPDATE SET
				access_token = EXCLUDED.access_token,
				refresh_token = COALESCE(EXCLUDED.refresh_token, oauth_grants.refresh_token),
				expires_at = EXCLUDED.expires_at,
				scope = EXCLUDED.scope,
				updated_at = EXCLUDED.updated_at`
	} else {
		query = `INSERT INTO oauth_grants (id, user_id, provider, access_token, refresh_token, expires_at, scope, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, provider) DO UPDATE SET
				access_token = excluded.access_token,
				refresh_token = COALESCE(excluded.refresh_token, oauth_grants.refresh_token),
				expires_at = excluded.expires_at,
				scope = excluded.scope,
				updated_at = excluded.updated_at`
	}

	if grant.ID == "" {
		grant.ID = GenerateID()
		grant.CreatedAt = now
	}

	_, err := s.db.Exec(query,
		grant.ID, grant.UserID, grant.Provider,
		grant.AccessToken, grant.RefreshToken, grant.ExpiresAt, grant.Scope,
		grant.CreatedAt, grant.UpdatedAt,
	)
	return err
}

// UpdateGrantAccessToken persists a silently refreshed access token.
func (s *Store) UpdateGrantAccessToken(userID, provider, accessToken string, expiresAt int64) error {
	var query string
	if s.dbType == "postgres" {
		query = `UPDATE oauth_grants SET access_token = $1, expires_at = $2, updated_at = $3
			WHERE user_id = $4 AND provider = $5`
	} else {
		query = `UPDATE oauth_grants SET access_token = ?, expires_at = ?, updated_at = ?
			WHERE user_id = ? AND provider = ?`
	}

	result, err := s.db.Exec(query, accessToken, expiresAt, time.Now().UTC(), userID, provider)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteGrant removes the stored grant when the user disconnects.
func (s *Store) DeleteGrant(userID, provider string) error {
	var query string
	if s.dbType == "postgres" {
		query = "DELETE FROM oauth_grants WHERE user_id = $1 AND provider = $2"
	} else {
		query = "DELETE FROM oauth_grants WHERE user_id = ? AND provider = ?"
	}

	result, err := s.db.Exec(query, userID, provider)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

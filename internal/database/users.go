package database

import (
	"database/sql"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/models"
)

const userColumns = `id, email, name, company, password, email_verified_at,
	verification_token, verification_token_expires_at,
	verification_code, verification_code_expires_at,
	reset_token, reset_token_expires_at,
	created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Company, &user.Password,
		&user.EmailVerifiedAt,
		&user.VerificationToken, &user.VerificationTokenExpiresAt,
		&user.VerificationCode, &user.VerificationCodeExpiresAt,
		&user.ResetToken, &user.ResetTokenExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new account. user.ID and timestamps are filled in.
func (s *Store) CreateUser(user *models.User) error {
	now := time.Now().UTC()
	user.ID = GenerateID()
	user.CreatedAt = now
	user.UpdatedAt = now

	var query string
	if s.dbType == "postgres" {
		query = `INSERT INTO users (id, email, name, company, password, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
	} else {
		query = `INSERT INTO users (id, email, name, company, password, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	}

	_, err := s.db.Exec(query, user.ID, user.Email, user.Name, user.Company, user.Password, user.CreatedAt, user.UpdatedAt)
	return err
}

// UserEmailExists reports whether an account with the given email exists.
func (s *Store) UserEmailExists(email string) (bool, error) {
	var query string
	if s.dbType == "postgres" {
		query = "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)"
	} else {
		query = "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)"
	}

	var exists bool
	err := s.db.QueryRow(query, email).Scan(&exists)
	return exists, err
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var query string
	if s.dbType == "postgres" {
		query = "SELECT " + userColumns + " FROM users WHERE email = $1"
	} else {
		query = "SELECT " + userColumns + " FROM users WHERE email = ?"
	}
	return scanUser(s.db.QueryRow(query, email))
}

// GetUserByID retrieves a user by their ID
func (s *Store) GetUserByID(id string) (*models.User, error) {
	var query string
	if s.dbType == "postgres" {
		query = "SELECT " + userColumns + " FROM users WHERE id = $1"
	} else {
		query = "SELECT " + userColumns + " FROM users WHERE id = ?"
	}
	return scanUser(s.db.QueryRow(query, id))
}

// UpdateProfile updates the mutable profile fields of an account.
func (s *Store) UpdateProfile(userID, name, company string) error {
	var query string
	if s.dbType == "postgres" {
		query = "UPDATE users SET name = $1, company = $2, updated_at = $3 WHERE id = $4"
	} else {
		query = "UPDATE users SET name = ?, company = ?, updated_at = ? WHERE id = ?"
	}

	result, err := s.db.Exec(query, name, company, time.Now().UTC(), userID)
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

// SetVerificationCredentials installs a fresh verification token and code for
// the account, superseding any previously issued pair.
func (s *Store) SetVerificationCredentials(userID, token, code string, expiresAt time.Time) error {
	var query string
	if s.dbType == "postgres" {
		query = `UPDATE users SET verification_token = $1, verification_token_expires_at = $2,
			verification_code = $3, verification_code_expires_at = $2, updated_at = $4
			WHERE id = $5`
	} else {
		query = `UPDATE users SET verification_token = ?, verification_token_expires_at = ?,
			verification_code = ?, verification_code_expires_at = ?, updated_at = ?
			WHERE id = ?`
	}

	var result sql.Result
	var err error
	expiresAt = expiresAt.UTC()
	now := time.Now().UTC()
	if s.dbType == "postgres" {
		result, err = s.db.Exec(query, token, expiresAt, code, now, userID)
	} else {
		result, err = s.db.Exec(query, token, expiresAt, code, expiresAt, now, userID)
	}
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

// ConsumeVerificationToken marks the matching account verified and clears the
// whole token/code pair in the same statement. The conditional update is the concurrency
// guard: two requests presenting the same token race on the row update and
// only one sees an affected row. Returns sql.ErrNoRows when the token does
// not match an unverified account or has expired.
func (s *Store) ConsumeVerificationToken(token string, now time.Time) (string, error) {
	now = now.UTC()

	var query string
	if s.dbType == "postgres" {
		query = `UPDATE users SET email_verified_at = $1,
			verification_token = NULL, verification_token_expires_at = NULL,
			verification_code = NULL, verification_code_expires_at = NULL, updated_at = $1
			WHERE verification_token = $2 AND email_verified_at IS NULL AND verification_token_expires_at > $3
			RETURNING id`
	} else {
		query = `UPDATE users SET email_verified_at = ?,
			verification_token = NULL, verification_token_expires_at = NULL,
			verification_code = NULL, verification_code_expires_at = NULL, updated_at = ?
			WHERE verification_token = ? AND email_verified_at IS NULL AND verification_token_expires_at > ?
			RETURNING id`
	}

	var userID string
	var err error
	if s.dbType == "postgres" {
		err = s.db.QueryRow(query, now, token, now).Scan(&userID)
	} else {
		err = s.db.QueryRow(query, now, now, token, now).Scan(&userID)
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// ConsumeVerificationCode is the code variant of ConsumeVerificationToken,
// matched on the (email, code) pair. The same statement consumes the whole
// token/code pair.
func (s *Store) ConsumeVerificationCode(email, code string, now time.Time) (string, error) {
	now = now.UTC()

	var query string
	if s.dbType == "postgres" {
		query = `UPDATE users SET email_verified_at = $1,
			verification_code = NULL, verification_code_expires_at = NULL,
			verification_token = NULL, verification_token_expires_at = NULL, updated_at = $1
			WHERE email = $2 AND verification_code = $3 AND email_verified_at IS NULL AND verification_code_expires_at > $4
			RETURNING id`
	} else {
		query = `UPDATE users SET email_verified_at = ?,
			verification_code = NULL, verification_code_expires_at = NULL,
			verification_token = NULL, verification_token_expires_at = NULL, updated_at = ?
			WHERE email = ? AND verification_code = ? AND email_verified_at IS NULL AND verification_code_expires_at > ?
			RETURNING id`
	}

	var userID string
	var err error
	if s.dbType == "postgres" {
		err = s.db.QueryRow(query, now, email, code, now).Scan(&userID)
	} else {
		err = s.db.QueryRow(query, now, now, email, code, now).Scan(&userID)
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// SetResetCredentials installs a fresh reset token and confirmation code,
// superseding any previously issued pair for this account.
func (s *Store) SetResetCredentials(userID, token, code string, expiresAt time.Time) error {
	expiresAt = expiresAt.UTC()
	now := time.Now().UTC()

	var query string
	if s.dbType == "postgres" {
		query = `UPDATE users SET reset_token = $1, reset_token_expires_at = $2,
			verification_code = $3, verification_code_expires_at = $2, updated_at = $4
			WHERE id = $5`
	} else {
		query = `UPDATE users SET reset_token = ?, reset_token_expires_at = ?,
			verification_code = ?, verification_code_expires_at = ?, updated_at = ?
			WHERE id = ?`
	}

	var result sql.Result
	var err error
	if s.dbType == "postgres" {
		result, err = s.db.Exec(query, token, expiresAt, code, now, userID)
	} else {
		result, err = s.db.Exec(query, token, expiresAt, code, expiresAt, now, userID)
	}
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

// SwapResetCodeForToken consumes a valid reset confirmation code and installs
// the short-lived reset token in the same statement, so the code can never be
// redeemed twice.
func (s *Store) SwapResetCodeForToken(email, code string, now time.Time, newToken string, newExpiry time.Time) (string, error) {
	now = now.UTC()
	newExpiry = newExpiry.UTC()

	var query string
	if s.dbType == "postgres" {
		query = `UPDATE users SET verification_code = NULL, verification_code_expires_at = NULL,
			reset_token = $1, reset_token_expires_at = $2, updated_at = $3
			WHERE email = $4 AND verification_code = $5 AND verification_code_expires_at > $3
			RETURNING id`
	} else {
		query = `UPDATE users SET verification_code = NULL, verification_code_expires_at = NULL,
			reset_token = ?, reset_token_expires_at = ?, updated_at = ?
			WHERE email = ? AND verification_code = ? AND verification_code_expires_at > ?
			RETURNING id`
	}

	var userID string
	var err error
	if s.dbType == "postgres" {
		err = s.db.QueryRow(query, newToken, newExpiry, now, email, code).Scan(&userID)
	} else {
		err = s.db.QueryRow(query, newToken, newExpiry, now, email, code, now).Scan(&userID)
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// ConsumeResetToken writes the new password hash and clears the reset token
// in the same conditional statement.
func (s *Store) ConsumeResetToken(token string, now time.Time, passwordHash string) (string, error) {
	now = now.UTC()

	var query string
	if s.dbType == "postgres" {
		query = `UPDATE users SET password = $1,
			reset_token = NULL, reset_token_expires_at = NULL, updated_at = $2
			WHERE reset_token = $3 AND reset_token_expires_at > $2
			RETURNING id`
	} else {
		query = `UPDATE users SET password = ?,
			reset_token = NULL, reset_token_expires_at = NULL, updated_at = ?
			WHERE reset_token = ? AND reset_token_expires_at > ?
			RETURNING id`
	}

	var userID string
	var err error
	if s.dbType == "postgres" {
		err = s.db.QueryRow(query, passwordHash, now, token).Scan(&userID)
	} else {
		err = s.db.QueryRow(query, passwordHash, now, token, now).Scan(&userID)
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// UpdatePassword overwrites the stored password hash.
func (s *Store) UpdatePassword(userID, passwordHash string) error {
	var query string
	if s.dbType == "postgres" {
		query = "UPDATE users SET password = $1, updated_at = $2 WHERE id = $3"
	} else {
		query = "UPDATE users SET password = ?, updated_at = ? WHERE id = ?"
	}

	result, err := s.db.Exec(query, passwordHash, time.Now().UTC(), userID)
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

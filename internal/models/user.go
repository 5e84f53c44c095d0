package models

import (
	"time"
)

// User represents an account in the system. Credential fields (verification
// token, verification code, reset token) are nullable: a NULL value means no
// credential of that purpose is outstanding. A consumed credential is
// indistinguishable from one that was never issued.
type User struct {
	ID       string  `json:"id" db:"id"`
	Email    string  `json:"email" db:"email"`
	Name     string  `json:"name" db:"name"`
	Company  string  `json:"company,omitempty" db:"company"`
	Password *string `json:"-" db:"password"` // bcrypt hash; nil for social-only accounts

	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty" db:"email_verified_at"`

	VerificationToken          *string    `json:"-" db:"verification_token"`
	VerificationTokenExpiresAt *time.Time `json:"-" db:"verification_token_expires_at"`

	VerificationCode          *string    `json:"-" db:"verification_code"`
	VerificationCodeExpiresAt *time.Time `json:"-" db:"verification_code_expires_at"`

	ResetToken          *string    `json:"-" db:"reset_token"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsVerified returns true if the user has confirmed their email address.
func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// HasPassword returns false for accounts created through a social sign-in
// that never set a local password.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// PublicUser is the subset of account fields safe to return to clients.
type PublicUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Company       string    `json:"company,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public strips credential and hash fields from a user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Company:       u.Company,
		EmailVerified: u.IsVerified(),
		CreatedAt:     u.CreatedAt,
	}
}

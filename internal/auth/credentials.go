package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/chronoplan-io/chronoplan/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	// How long the signup verification link and code stay valid.
	VerificationTTL = 24 * time.Hour
	// How long the emailed reset code stays valid.
	ResetCodeTTL = 1 * time.Hour
	// How long the post-confirmation reset token stays valid. Deliberately
	// short: the caller has already proven code possession, so this only
	// needs to cover the password form submission.
	ResetTokenTTL = 15 * time.Minute
)

var (
	ErrEmailAlreadyTaken = apperr.New("conflict", 409, "email already registered")
	ErrAlreadyVerified   = errors.New("email already verified")
	ErrInvalidPassword   = apperr.New("validation_error", 400, "current password is incorrect")
	ErrSamePassword      = apperr.New("validation_error", 400, "new password must differ from the current one")
	ErrNoPassword        = apperr.New("not_found", 404, "no password is set for this account")

	errInvalidToken = apperr.New("invalid_or_expired_credential", 400, "invalid or expired token")
	errInvalidCode  = apperr.New("invalid_or_expired_credential", 400, "invalid or expired code")
)

// Mailer delivers a message to a recipient. The body is the only place a raw
// credential may appear; implementations must not copy it to a log sink.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service owns the issue/validate/consume lifecycle of verification and
// reset credentials.
type Service struct {
	store       *database.Store
	mailer      Mailer
	frontendURL string
}

// NewService creates a credential lifecycle service.
func NewService(store *database.Store, mailer Mailer, frontendURL string) *Service {
	return &Service{
		store:       store,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

// Register creates a new unverified account and sends the verification email.
func (s *Service) Register(ctx context.Context, name, email, password, company string) (*models.User, error) {
	exists, err := s.store.UserEmailExists(email)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}
	if exists {
		return nil, ErrEmailAlreadyTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}

	hash := string(hashed)
	user := &models.User{
		Email:    email,
		Name:     name,
		Company:  company,
		Password: &hash,
	}
	if err := s.store.CreateUser(user); err != nil {
		// A concurrent duplicate signup slips past the exists check and
		// lands on the unique constraint instead.
		if isUniqueViolation(err) {
			return nil, ErrEmailAlreadyTaken
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}

	if err := s.issueVerification(ctx, user); err != nil {
		log.Printf("Failed to send verification email for new account %s: %v", user.ID, err)
	}

	log.Printf("Account registered: %s", user.ID)
	return user, nil
}

// ResendVerification issues a fresh verification token and code for the
// account. A missing account produces the same nil result as a successful
// send, so the endpoint cannot be used to enumerate emails. An already
// verified account returns ErrAlreadyVerified without mutation.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}
	if user.IsVerified() {
		return ErrAlreadyVerified
	}
	return s.issueVerification(ctx, user)
}

// issueVerification generates and persists a verification token/code pair and
// hands them to the mailer. Issuing supersedes any outstanding pair. The raw
// values go only into the message body, never into a response or a log line.
func (s *Service) issueVerification(ctx context.Context, user *models.User) error {
	token, err := GenerateOpaqueToken()
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}
	code, err := GenerateNumericCode()
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	expiresAt := time.Now().Add(VerificationTTL)
	if err := s.store.SetVerificationCredentials(user.ID, token, code, expiresAt); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)
	body := fmt.Sprintf(
		"Welcome to ChronoPlan!\n\nConfirm your email by opening this link:\n%s\n\nOr enter this code in the app: %s\n\nThe link and code expire in 24 hours.",
		verifyURL, code,
	)
	if err := s.mailer.Send(ctx, user.Email, "Confirm your ChronoPlan account", body); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Verification credentials issued for account %s", user.ID)
	return nil
}

// ConfirmVerification consumes a verification token, marking the account
// verified. The lookup and the clear happen in one conditional update, so a
// replay of the same token fails identically to an unknown token.
func (s *Service) ConfirmVerification(ctx context.Context, token string) error {
	if token == "" {
		return errInvalidToken
	}

	userID, err := s.store.ConsumeVerificationToken(token, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errInvalidToken
		}
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Account verified: %s", userID)
	return nil
}

// ConfirmVerificationByCode is the deep-link-free variant, matched on the
// (email, code) pair. A wrong email and a wrong or expired code fail the
// same way.
func (s *Service) ConfirmVerificationByCode(ctx context.Context, email, code string) (*models.User, error) {
	if !ValidateCode(code) {
		return nil, errInvalidCode
	}

	userID, err := s.store.ConsumeVerificationCode(email, code, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errInvalidCode
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}

	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Account verified by code: %s", userID)
	return user, nil
}

// RequestPasswordReset issues a reset token and confirmation code for the
// account and mails them. A missing account is treated exactly like a
// successful issuance: same nil result, no side effects.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	token, err := GenerateOpaqueToken()
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}
	code, err := GenerateNumericCode()
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	expiresAt := time.Now().Add(ResetCodeTTL)
	if err := s.store.SetResetCredentials(user.ID, token, code, expiresAt); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your ChronoPlan account.\n\nOpen this link to choose a new password:\n%s\n\nOr enter this code in the app: %s\n\nThe link and code expire in 1 hour. If you did not request this, you can ignore this email.",
		resetURL, code,
	)
	if err := s.mailer.Send(ctx, user.Email, "Reset your ChronoPlan password", body); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Password reset issued for account %s", user.ID)
	return nil
}

// ConfirmResetCode swaps a valid reset code for a short-lived reset token.
// This is the one place a freshly minted credential is returned to the
// caller: code possession has just been proven, and the 15 minute window
// bounds how long a stolen token stays useful.
func (s *Service) ConfirmResetCode(ctx context.Context, email, code string) (string, string, error) {
	if !ValidateCode(code) {
		return "", "", errInvalidCode
	}

	token, err := GenerateOpaqueToken()
	if err != nil {
		return "", "", apperr.Wrap(err, apperr.ErrInternal, "")
	}

	userID, err := s.store.SwapResetCodeForToken(email, code, time.Now(), token, time.Now().Add(ResetTokenTTL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", errInvalidCode
		}
		return "", "", apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Reset code confirmed for account %s", userID)
	return token, userID, nil
}

// ResetPassword consumes a reset token and writes the new password hash in
// the same conditional update.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return errInvalidToken
	}
	if !ValidatePassword(newPassword) {
		return apperr.New("validation_error", 400, "password must be at least 8 characters with upper case, lower case, a digit, and a symbol")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	userID, err := s.store.ConsumeResetToken(token, time.Now(), string(hashed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errInvalidToken
		}
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Password reset completed for account %s", userID)
	return nil
}

// ChangePassword is the authenticated path: it verifies the current password
// and rejects a no-op change before writing the new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(err, apperr.ErrNotFound, "account not found")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	if !user.HasPassword() {
		return ErrNoPassword
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(currentPassword)); err != nil {
		return ErrInvalidPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(newPassword)) == nil {
		return ErrSamePassword
	}
	if !ValidatePassword(newPassword) {
		return apperr.New("validation_error", 400, "password must be at least 8 characters with upper case, lower case, a digit, and a symbol")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}
	if err := s.store.UpdatePassword(userID, string(hashed)); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Password changed for account %s", userID)
	return nil
}

// isUniqueViolation matches the duplicate-key errors of both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// Authenticate verifies login credentials.
func (s *Service) Authenticate(email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New("unauthenticated", 401, "invalid email or password")
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}
	if !user.HasPassword() {
		return nil, apperr.New("unauthenticated", 401, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)); err != nil {
		return nil, apperr.New("unauthenticated", 401, "invalid email or password")
	}
	return user, nil
}

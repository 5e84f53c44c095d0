package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/auth"
)

// apiTokenTTL is the lifetime of bearer tokens minted for programmatic access.
const apiTokenTTL = 30 * 24 * time.Hour

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !auth.ValidateEmail(req.Email) {
		respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "invalid email address"))
		return
	}
	if !auth.ValidateSignupPassword(req.Password) {
		respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "password must be between 6 and 72 characters"))
		return
	}

	user, err := api.Credentials.Register(r.Context(), req.Name, req.Email, req.Password, req.Company)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user.Public())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := api.Credentials.Authenticate(strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := api.Credentials.CreateSession(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   api.Config.Domains.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, user.Public())
}

func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session"); err == nil {
		if err := api.Credentials.DeleteSession(cookie.Value); err != nil {
			respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.Config.Domains.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	respondMessage(w, http.StatusOK, "logged out")
}

type emailRequest struct {
	Email string `json:"email"`
}

func (api *Api) ResendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !auth.ValidateEmail(email) {
		respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "invalid email address"))
		return
	}

	if err := api.Credentials.ResendVerification(r.Context(), email); err != nil {
		if errors.Is(err, auth.ErrAlreadyVerified) {
			respondMessage(w, http.StatusOK, "email is already verified")
			return
		}
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "if an account exists for that address, a verification email has been sent")
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (api *Api) ConfirmVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := api.Credentials.ConfirmVerification(r.Context(), req.Token); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "email verified")
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (api *Api) ConfirmVerificationCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := api.Credentials.ConfirmVerificationByCode(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user.Public())
}

func (api *Api) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !auth.ValidateEmail(email) {
		respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "invalid email address"))
		return
	}

	if err := api.Credentials.RequestPasswordReset(r.Context(), email); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "if an account exists for that address, a reset email has been sent")
}

func (api *Api) ConfirmResetCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, userID, err := api.Credentials.ConfirmResetCode(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"reset_token": token,
		"account_id":  userID,
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (api *Api) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := api.Credentials.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "password has been reset")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (api *Api) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := api.Credentials.ChangePassword(r.Context(), info.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "password changed")
}

func (api *Api) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	user, err := api.Store.GetUserByID(info.UserID)
	if err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusOK, user.Public())
}

type updateProfileRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
}

func (api *Api) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "name must not be empty"))
		return
	}

	if err := api.Store.UpdateProfile(info.UserID, req.Name, req.Company); err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}

	user, err := api.Store.GetUserByID(info.UserID)
	if err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusOK, user.Public())
}

// CreateTokenHandler mints a bearer token for programmatic API access.
func (api *Api) CreateTokenHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	email := info.Email
	if email == "" {
		user, err := api.Store.GetUserByID(info.UserID)
		if err != nil {
			respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
			return
		}
		email = user.Email
	}

	token, err := api.Tokens.GenerateToken(info.UserID, email, apiTokenTTL)
	if err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"token":      token,
		"expires_at": time.Now().Add(apiTokenTTL).UTC().Format(time.RFC3339),
	})
}

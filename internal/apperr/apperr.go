package apperr

import (
	"errors"
	"net/http"
)

// Error represents a typed, status-aware application error. The Message is
// safe to return to clients; the wrapped Err carries server-side detail.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match against the sentinel values below by code, so
// wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches err to a copy of base, optionally overriding the client
// message. The base's code and status are preserved.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	copy := *base
	if message != "" {
		copy.Message = message
	}
	copy.Err = err
	return &copy
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// Message returns a client-safe message. Unknown errors collapse to a generic
// message so internals never leak to the caller.
func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Message != "" {
			return e.Message
		}
		return e.Code
	}
	return "an unexpected error occurred"
}

var (
	ErrValidation        = New("validation_error", http.StatusBadRequest, "")
	ErrUnauthenticated   = New("unauthenticated", http.StatusUnauthorized, "authentication required")
	ErrConflict          = New("conflict", http.StatusConflict, "")
	ErrNotFound          = New("not_found", http.StatusNotFound, "")
	ErrInvalidCredential = New("invalid_or_expired_credential", http.StatusBadRequest, "invalid or expired token")
	ErrUpstream          = New("upstream_failure", http.StatusInternalServerError, "calendar provider request failed")
	ErrInternal          = New("internal_error", http.StatusInternalServerError, "an unexpected error occurred")
)

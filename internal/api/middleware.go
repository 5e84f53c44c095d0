package api

import (
	"net/http"
	"strings"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/auth"
)

// AuthMiddleware accepts either a bearer JWT (programmatic access) or a
// session cookie (browser access) and attaches a typed SessionInfo to the
// request context.
func (api *Api) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				claims, err := api.Tokens.ValidateToken(parts[1])
				if err == nil {
					info := auth.SessionInfo{UserID: claims.UserID, Email: claims.Email}
					next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), info)))
					return
				}
			}
		}

		cookie, err := r.Cookie("session")
		if err == nil {
			session, err := api.Credentials.ValidateSession(cookie.Value)
			if err == nil {
				info := auth.SessionInfo{UserID: session.UserID}
				next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), info)))
				return
			}
		}

		respondError(w, r, apperr.ErrUnauthenticated)
	})
}

// sessionUser extracts the authenticated user id, or writes a 401.
func sessionUser(w http.ResponseWriter, r *http.Request) (auth.SessionInfo, bool) {
	info, ok := auth.SessionFromContext(r.Context())
	if !ok || info.UserID == "" {
		respondError(w, r, apperr.ErrUnauthenticated)
		return auth.SessionInfo{}, false
	}
	return info, true
}

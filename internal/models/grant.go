package models

import (
	"time"
)

// Grant holds the stored OAuth access/refresh token pair for one external
// provider. Each user has at most one grant per provider; the row is deleted
// when the user disconnects.
type Grant struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Provider     string    `json:"provider" db:"provider"`
	AccessToken  *string   `json:"-" db:"access_token"`
	RefreshToken *string   `json:"-" db:"refresh_token"`
	ExpiresAt    *int64    `json:"-" db:"expires_at"` // epoch seconds
	Scope        string    `json:"scope" db:"scope"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// HasAccessToken reports whether an access token is on file at all,
// regardless of expiry.
func (g *Grant) HasAccessToken() bool {
	return g != nil && g.AccessToken != nil && *g.AccessToken != ""
}

// HasRefreshToken reports whether the provider issued a long-lived refresh
// token we still hold.
func (g *Grant) HasRefreshToken() bool {
	return g != nil && g.RefreshToken != nil && *g.RefreshToken != ""
}

// AccessTokenExpired reports whether the stored access token's expiry has
// passed. A grant without an expiry is treated as unexpired; the provider
// rejects it at call time if not.
func (g *Grant) AccessTokenExpired(now time.Time) bool {
	return g != nil && g.ExpiresAt != nil && *g.ExpiresAt < now.Unix()
}

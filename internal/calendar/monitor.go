package calendar

import (
	"database/sql"
	"errors"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/chronoplan-io/chronoplan/internal/models"
)

// ProviderGoogle is the provider key under which Google grants are stored.
const ProviderGoogle = "google"

// ConnectionState is the derived state of a stored calendar grant.
type ConnectionState string

const (
	// No access token on file: the user never connected or disconnected.
	StateDisconnected ConnectionState = "disconnected"
	// A currently valid access token is on file.
	StateConnected ConnectionState = "connected"
	// The access token has expired but a refresh token is on file; the
	// gateway refreshes it silently on next use.
	StateConnectedStale ConnectionState = "connected_stale"
	// The access token has expired and there is no refresh token. Only a
	// fresh consent round-trip can recover the connection.
	StateNeedsReauth ConnectionState = "needs_reauth"
)

// DeriveState computes the connection state from a grant snapshot and the
// current time. It is a pure function; nil is a valid "never connected"
// snapshot.
func DeriveState(grant *models.Grant, now time.Time) ConnectionState {
	if !grant.HasAccessToken() {
		return StateDisconnected
	}
	if !grant.AccessTokenExpired(now) {
		return StateConnected
	}
	if grant.HasRefreshToken() {
		return StateConnectedStale
	}
	return StateNeedsReauth
}

// Status is the client-facing connection summary. HasAccess answers "is a
// grant on file", not "is it currently usable": a NeedsReauth grant reports
// hasAccess=true together with needsReauth=true.
type Status struct {
	HasAccess   bool `json:"hasAccess"`
	NeedsReauth bool `json:"needsReauth"`
}

// StatusFor maps a connection state onto the client-facing summary.
func StatusFor(state ConnectionState) Status {
	switch state {
	case StateConnected, StateConnectedStale:
		return Status{HasAccess: true, NeedsReauth: false}
	case StateNeedsReauth:
		return Status{HasAccess: true, NeedsReauth: true}
	default:
		return Status{}
	}
}

// Monitor derives connection state for stored grants.
type Monitor struct {
	store *database.Store
}

// NewMonitor creates a Monitor over the given store.
func NewMonitor(store *database.Store) *Monitor {
	return &Monitor{store: store}
}

// CheckStatus loads the user's Google grant and derives its status. A user
// with no grant row is simply disconnected.
func (m *Monitor) CheckStatus(userID string) (Status, error) {
	grant, err := m.store.GetGrant(userID, ProviderGoogle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Status{}, nil
		}
		return Status{}, apperr.Wrap(err, apperr.ErrInternal, "")
	}
	return StatusFor(DeriveState(grant, time.Now())), nil
}

package calendar

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/database"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	// ErrNotConnected means no usable grant is on file at all.
	ErrNotConnected = apperr.New("calendar_not_connected", http.StatusUnauthorized, "no calendar connection on file")
	// ErrReauthRequired means tokens exist but cannot be used or refreshed;
	// only a forced-consent reauthorization recovers the connection.
	ErrReauthRequired = apperr.New("calendar_reauth_required", http.StatusUnauthorized, "calendar authorization has expired, please reconnect")
	// ErrEventNotFound maps the provider's 404 for a missing event.
	ErrEventNotFound = apperr.New("not_found", http.StatusNotFound, "calendar event not found")
)

// EventInput carries the fields a caller may set on a calendar event.
type EventInput struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// Gateway performs calendar reads and writes against Google on behalf of a
// user, using their stored grant. An expired access token with a refresh
// token on file is refreshed silently and the new token persisted; callers
// never see the refresh happen, only ErrReauthRequired when refresh is
// impossible.
type Gateway struct {
	store *database.Store
	oauth *oauth2.Config
}

// NewGateway creates a Gateway sharing the connector's oauth client config.
func NewGateway(store *database.Store, connector *Connector) *Gateway {
	return &Gateway{store: store, oauth: connector.oauthConfig()}
}

// tokenSource resolves the user's grant into an auto-refreshing, persisting
// token source. The monitor's state decides whether a call is attempted at
// all.
func (g *Gateway) tokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	grant, err := g.store.GetGrant(userID, ProviderGoogle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotConnected
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, "")
	}

	switch DeriveState(grant, time.Now()) {
	case StateDisconnected:
		return nil, ErrNotConnected
	case StateNeedsReauth:
		return nil, ErrReauthRequired
	}

	tok := &oauth2.Token{AccessToken: *grant.AccessToken}
	if grant.RefreshToken != nil {
		tok.RefreshToken = *grant.RefreshToken
	}
	if grant.ExpiresAt != nil {
		tok.Expiry = time.Unix(*grant.ExpiresAt, 0)
	}

	return &persistingTokenSource{
		base:   g.oauth.TokenSource(ctx, tok),
		store:  g.store,
		userID: userID,
		last:   tok.AccessToken,
	}, nil
}

// persistingTokenSource writes silently refreshed access tokens back to the
// grant row, so the stored expiry tracks reality.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  *database.Store
	userID string
	last   string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		// A revoked or expired refresh token surfaces as invalid_grant.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, ErrReauthRequired
		}
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "")
	}

	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.store.UpdateGrantAccessToken(p.userID, ProviderGoogle, tok.AccessToken, tok.Expiry.Unix()); err != nil {
			log.Printf("Failed to persist refreshed access token for account %s: %v", p.userID, err)
		}
	}
	return tok, nil
}

func (g *Gateway) service(ctx context.Context, userID string) (*gcal.Service, error) {
	ts, err := g.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "")
	}
	return svc, nil
}

// ListCalendars returns the calendars visible to the connected account.
func (g *Gateway) ListCalendars(ctx context.Context, userID string) ([]*gcal.CalendarListEntry, error) {
	svc, err := g.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, mapProviderError(err)
	}
	return list.Items, nil
}

// CreateEvent creates an event on the given calendar.
func (g *Gateway) CreateEvent(ctx context.Context, userID, calendarID string, in EventInput) (*gcal.Event, error) {
	svc, err := g.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	event, err := svc.Events.Insert(calendarID, eventFromInput(in)).Context(ctx).Do()
	if err != nil {
		return nil, mapProviderError(err)
	}
	return event, nil
}

// UpdateEvent patches an existing event on the given calendar.
func (g *Gateway) UpdateEvent(ctx context.Context, userID, calendarID, eventID string, in EventInput) (*gcal.Event, error) {
	svc, err := g.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	event, err := svc.Events.Patch(calendarID, eventID, eventFromInput(in)).Context(ctx).Do()
	if err != nil {
		return nil, mapProviderError(err)
	}
	return event, nil
}

// DeleteEvent removes an event from the given calendar.
func (g *Gateway) DeleteEvent(ctx context.Context, userID, calendarID, eventID string) error {
	svc, err := g.service(ctx, userID)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return mapProviderError(err)
	}
	return nil
}

func eventFromInput(in EventInput) *gcal.Event {
	event := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
	}
	if !in.StartsAt.IsZero() {
		event.Start = &gcal.EventDateTime{DateTime: in.StartsAt.Format(time.RFC3339)}
	}
	if !in.EndsAt.IsZero() {
		event.End = &gcal.EventDateTime{DateTime: in.EndsAt.Format(time.RFC3339)}
	}
	return event
}

// mapProviderError translates provider failures into the error taxonomy: a
// rejected token is distinguishable from a missing resource and from
// transient upstream failures, so callers trigger reauthorization instead of
// retrying blindly.
func mapProviderError(err error) error {
	if errors.Is(err, ErrReauthRequired) || errors.Is(err, ErrNotConnected) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return ErrReauthRequired
		case http.StatusNotFound:
			return ErrEventNotFound
		}
	}
	return apperr.Wrap(err, apperr.ErrUpstream, "")
}

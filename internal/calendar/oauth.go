package calendar

import (
	"context"
	"strings"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/config"
	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/chronoplan-io/chronoplan/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// oauthScopes is the fixed scope set requested on every authorization:
// basic profile plus calendar read and event write access.
var oauthScopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	gcal.CalendarReadonlyScope,
	gcal.CalendarEventsScope,
}

// Connector drives the authorization handshake with Google: building the
// redirect URL, exchanging the callback code, and persisting the grant.
type Connector struct {
	store       *database.Store
	oauth       *oauth2.Config
	stateSecret string
}

// NewConnector creates a Connector from the Google section of the config.
func NewConnector(cfg *config.Config, store *database.Store) *Connector {
	return &Connector{
		store:       store,
		stateSecret: cfg.Auth.JWTSecret,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       oauthScopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthorizationURL builds the provider redirect. access_type=offline is
// always requested so a refresh token is issued on first consent. When
// forceConsent is set the consent screen is forced, which is the only
// reliable way to get Google to reissue a refresh token; a plain re-login
// does not.
func (c *Connector) AuthorizationURL(userID, redirect string, forceConsent bool) (string, error) {
	state, err := EncodeState(State{UserID: userID, Redirect: redirect, Reauth: forceConsent}, c.stateSecret)
	if err != nil {
		return "", apperr.Wrap(err, apperr.ErrInternal, "")
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if forceConsent {
		opts = append(opts, oauth2.ApprovalForce)
	}
	return c.oauth.AuthCodeURL(state, opts...), nil
}

// HandleCallback exchanges the authorization code and persists the resulting
// grant for the account carried in the state.
func (c *Connector) HandleCallback(ctx context.Context, rawState, code string) (State, error) {
	state, ok := DecodeState(rawState, c.stateSecret)
	if !ok {
		return State{}, apperr.New("validation_error", 400, "invalid state parameter")
	}

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return State{}, apperr.Wrap(err, apperr.ErrUpstream, "authorization code exchange failed")
	}

	grant := &models.Grant{
		UserID:   state.UserID,
		Provider: ProviderGoogle,
		Scope:    strings.Join(oauthScopes, " "),
	}
	if tok.AccessToken != "" {
		grant.AccessToken = &tok.AccessToken
	}
	// Google omits the refresh token on repeat consent; a nil value keeps
	// the stored one.
	if tok.RefreshToken != "" {
		grant.RefreshToken = &tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.Unix()
		grant.ExpiresAt = &expiry
	}

	if err := c.store.UpsertGrant(grant); err != nil {
		return State{}, apperr.Wrap(err, apperr.ErrInternal, "")
	}

	log.Printf("Calendar grant stored for account %s (reauth=%v)", state.UserID, state.Reauth)
	return state, nil
}

// Disconnect deletes the stored grant.
func (c *Connector) Disconnect(userID string) error {
	return c.store.DeleteGrant(userID, ProviderGoogle)
}

// oauthConfig exposes the oauth2 config to the gateway for token refresh.
func (c *Connector) oauthConfig() *oauth2.Config {
	return c.oauth
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/config"
	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/chronoplan-io/chronoplan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

type captureMailer struct {
	sent []capturedMail
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *captureMailer) lastBody(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1].Body
}

var (
	tokenInBody = regexp.MustCompile(`token=([0-9a-f]{64})`)
	codeInBody  = regexp.MustCompile(`code in the app: ([0-9]{6})`)
)

func newTestAPI(t *testing.T) (*Api, *captureMailer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.APIPort = 8081
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.FrontendURL = "https://app.example.com"
	cfg.Auth.JWTSecret = "test-jwt-secret"

	store, err := database.Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mailer := &captureMailer{}
	api, err := NewApi(cfg, store, mailer)
	require.NoError(t, err)
	return api, mailer
}

type request struct {
	method string
	path   string
	body   interface{}
	cookie *http.Cookie
	bearer string
}

func do(t *testing.T, api *Api, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	httpReq := httptest.NewRequest(req.method, req.path, body)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.cookie != nil {
		httpReq.AddCookie(req.cookie)
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, httpReq)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func registerUser(t *testing.T, api *Api, email, password string) {
	t.Helper()
	rec := do(t, api, request{method: "POST", path: "/auth/register", body: map[string]string{
		"name": "Test User", "email": email, "password": password,
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func loginUser(t *testing.T, api *Api, email, password string) *http.Cookie {
	t.Helper()
	rec := do(t, api, request{method: "POST", path: "/auth/login", body: map[string]string{
		"email": email, "password": password,
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

func TestRegisterValidation(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, request{method: "POST", path: "/auth/register", body: map[string]string{
		"email": "not-an-email", "password": "passw0rd",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, api, request{method: "POST", path: "/auth/register", body: map[string]string{
		"email": "short@example.com", "password": "abc",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "dup@example.com", "passw0rd")

	rec := do(t, api, request{method: "POST", path: "/auth/register", body: map[string]string{
		"name": "Again", "email": "dup@example.com", "password": "passw0rd",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterNeverEchoesCredentials(t *testing.T) {
	api, mailer := newTestAPI(t)
	registerUser(t, api, "quiet@example.com", "passw0rd")

	// The verification token reaches the mail body and nowhere else.
	require.NotEmpty(t, mailer.sent)
	rec := do(t, api, request{method: "POST", path: "/auth/register", body: map[string]string{
		"name": "X", "email": "quiet2@example.com", "password": "passw0rd",
	}})
	token := tokenInBody.FindStringSubmatch(mailer.lastBody(t))
	require.Len(t, token, 2)
	assert.NotContains(t, rec.Body.String(), token[1])
}

func TestLoginAndSessionAuth(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "login@example.com", "passw0rd")

	rec := do(t, api, request{method: "POST", path: "/auth/login", body: map[string]string{
		"email": "login@example.com", "password": "wrong",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := loginUser(t, api, "login@example.com", "passw0rd")

	rec = do(t, api, request{method: "GET", path: "/profile", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	var profile struct {
		Email string `json:"email"`
	}
	decodeBody(t, rec, &profile)
	assert.Equal(t, "login@example.com", profile.Email)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	api, _ := newTestAPI(t)

	for _, path := range []string{"/profile", "/calendar/status", "/timeblocks"} {
		rec := do(t, api, request{method: "GET", path: path})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "logout@example.com", "passw0rd")
	cookie := loginUser(t, api, "logout@example.com", "passw0rd")

	rec := do(t, api, request{method: "POST", path: "/auth/logout", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, request{method: "GET", path: "/profile", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenAuth(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "bearer@example.com", "passw0rd")
	cookie := loginUser(t, api, "bearer@example.com", "passw0rd")

	rec := do(t, api, request{method: "POST", path: "/tokens", cookie: cookie})
	require.Equal(t, http.StatusCreated, rec.Code)

	var minted struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &minted)
	require.NotEmpty(t, minted.Token)

	rec = do(t, api, request{method: "GET", path: "/profile", bearer: minted.Token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, request{method: "GET", path: "/profile", bearer: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerificationEndpoints(t *testing.T) {
	api, mailer := newTestAPI(t)
	registerUser(t, api, "verify@example.com", "passw0rd")

	match := tokenInBody.FindStringSubmatch(mailer.lastBody(t))
	require.Len(t, match, 2)
	token := match[1]

	rec := do(t, api, request{method: "POST", path: "/auth/verify", body: map[string]string{"token": token}})
	require.Equal(t, http.StatusOK, rec.Code)

	// Replay gets the same generic failure as an unknown token.
	rec = do(t, api, request{method: "POST", path: "/auth/verify", body: map[string]string{"token": token}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "invalid_or_expired_credential", body.Code)
}

func TestPasswordResetEndpoints(t *testing.T) {
	api, mailer := newTestAPI(t)
	registerUser(t, api, "reset@example.com", "OldPassw0rd!")

	rec := do(t, api, request{method: "POST", path: "/auth/password/forgot", body: map[string]string{
		"email": "reset@example.com",
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	match := codeInBody.FindStringSubmatch(mailer.lastBody(t))
	require.Len(t, match, 2)
	code := match[1]

	rec = do(t, api, request{method: "POST", path: "/auth/password/confirm-code", body: map[string]string{
		"email": "reset@example.com", "code": code,
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	var confirmed struct {
		ResetToken string `json:"reset_token"`
	}
	decodeBody(t, rec, &confirmed)
	require.NotEmpty(t, confirmed.ResetToken)

	rec = do(t, api, request{method: "POST", path: "/auth/password/reset", body: map[string]string{
		"token": confirmed.ResetToken, "new_password": "NewPassw0rd!",
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	loginUser(t, api, "reset@example.com", "NewPassw0rd!")
}

func TestForgotPasswordDoesNotEnumerate(t *testing.T) {
	api, mailer := newTestAPI(t)
	registerUser(t, api, "real@example.com", "passw0rd")
	mailer.sent = nil

	recKnown := do(t, api, request{method: "POST", path: "/auth/password/forgot", body: map[string]string{
		"email": "real@example.com",
	}})
	recUnknown := do(t, api, request{method: "POST", path: "/auth/password/forgot", body: map[string]string{
		"email": "ghost@example.com",
	}})

	assert.Equal(t, recKnown.Code, recUnknown.Code)
	assert.Equal(t, recKnown.Body.String(), recUnknown.Body.String())
	// Only the real account got mail.
	assert.Len(t, mailer.sent, 1)
}

func TestCalendarStatus(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "status@example.com", "passw0rd")
	cookie := loginUser(t, api, "status@example.com", "passw0rd")

	rec := do(t, api, request{method: "GET", path: "/calendar/status", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		HasAccess   bool `json:"hasAccess"`
		NeedsReauth bool `json:"needsReauth"`
	}
	decodeBody(t, rec, &status)
	assert.False(t, status.HasAccess)
	assert.False(t, status.NeedsReauth)

	// An expired grant with no refresh token needs reauthorization.
	user, err := api.Store.GetUserByEmail("status@example.com")
	require.NoError(t, err)
	access := "stale-access"
	expired := time.Now().Add(-100 * time.Second).Unix()
	require.NoError(t, api.Store.UpsertGrant(&models.Grant{
		UserID:      user.ID,
		Provider:    "google",
		AccessToken: &access,
		ExpiresAt:   &expired,
	}))

	rec = do(t, api, request{method: "GET", path: "/calendar/status", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &status)
	assert.True(t, status.HasAccess)
	assert.True(t, status.NeedsReauth)
}

func TestCalendarConnectURL(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "connect@example.com", "passw0rd")
	cookie := loginUser(t, api, "connect@example.com", "passw0rd")

	rec := do(t, api, request{method: "GET", path: "/calendar/connect?reauth=1", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		URL string `json:"url"`
	}
	decodeBody(t, rec, &body)
	assert.Contains(t, body.URL, "access_type=offline")
	assert.Contains(t, body.URL, "prompt=consent")
}

func TestDisconnectWithoutConnection(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "nogrant@example.com", "passw0rd")
	cookie := loginUser(t, api, "nogrant@example.com", "passw0rd")

	rec := do(t, api, request{method: "DELETE", path: "/calendar/connection", cookie: cookie})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimeBlockEndpoints(t *testing.T) {
	api, _ := newTestAPI(t)
	registerUser(t, api, "blocks@example.com", "passw0rd")
	cookie := loginUser(t, api, "blocks@example.com", "passw0rd")

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	rec := do(t, api, request{method: "POST", path: "/timeblocks", body: map[string]interface{}{
		"title":     "Deep work",
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(time.Hour).Format(time.RFC3339),
	}, cookie: cookie})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var block struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &block)
	require.NotEmpty(t, block.ID)

	rec = do(t, api, request{method: "GET", path: "/timeblocks", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), block.ID)

	rec = do(t, api, request{method: "PUT", path: "/timeblocks/" + block.ID, body: map[string]interface{}{
		"title":     "Planning",
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(2 * time.Hour).Format(time.RFC3339),
	}, cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, api, request{method: "DELETE", path: "/timeblocks/" + block.ID, cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, request{method: "GET", path: "/timeblocks/" + block.ID, cookie: cookie})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Invalid window rejected.
	rec = do(t, api, request{method: "POST", path: "/timeblocks", body: map[string]interface{}{
		"title":     "Backwards",
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(-time.Hour).Format(time.RFC3339),
	}, cookie: cookie})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

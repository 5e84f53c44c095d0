package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/calendar"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// ConnectCalendarHandler returns the provider authorization URL. Passing
// reauth=1 forces the consent screen, which makes the provider reissue a
// refresh token for a broken connection.
func (api *Api) ConnectCalendarHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	forceConsent := r.URL.Query().Get("reauth") == "1"
	redirect := r.URL.Query().Get("redirect")

	authURL, err := api.Connector.AuthorizationURL(info.UserID, redirect, forceConsent)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": authURL})
}

// CalendarCallbackHandler lands the provider redirect. The user's identity
// rides in the signed state parameter, so this route is public. The browser
// is sent back to the frontend either way; errors ride in the query string.
func (api *Api) CalendarCallbackHandler(w http.ResponseWriter, r *http.Request) {
	rawState := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	settingsURL := api.Config.FrontendURL + "/settings/calendar"

	if errCode := r.URL.Query().Get("error"); errCode != "" {
		log.Printf("Calendar authorization declined: %s", errCode)
		http.Redirect(w, r, settingsURL+"?error="+url.QueryEscape(errCode), http.StatusFound)
		return
	}

	state, err := api.Connector.HandleCallback(r.Context(), rawState, code)
	if err != nil {
		log.Printf("Calendar callback failed: %v", err)
		http.Redirect(w, r, settingsURL+"?error=connection_failed", http.StatusFound)
		return
	}

	target := settingsURL + "?connected=1"
	if state.Redirect != "" {
		target = api.Config.FrontendURL + state.Redirect
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (api *Api) ConnectionStatusHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	status, err := api.Monitor.CheckStatus(info.UserID)
	if err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (api *Api) DisconnectCalendarHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	if err := api.Connector.Disconnect(info.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, r, apperr.Wrap(err, apperr.ErrNotFound, "no calendar connection on file"))
			return
		}
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondMessage(w, http.StatusOK, "calendar disconnected")
}

func (api *Api) ListCalendarsHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	calendars, err := api.Gateway.ListCalendars(r.Context(), info.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"calendars": calendars})
}

type eventRequest struct {
	CalendarID string `json:"calendar_id"`
	calendar.EventInput
}

func (req *eventRequest) calendarID() string {
	if req.CalendarID == "" {
		return "primary"
	}
	return req.CalendarID
}

func validateEventInput(in calendar.EventInput) error {
	if in.Summary == "" {
		return apperr.New("validation_error", http.StatusBadRequest, "summary must not be empty")
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return apperr.New("validation_error", http.StatusBadRequest, "starts_at and ends_at are required")
	}
	if !in.EndsAt.After(in.StartsAt) {
		return apperr.New("validation_error", http.StatusBadRequest, "ends_at must be after starts_at")
	}
	return nil
}

func (api *Api) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateEventInput(req.EventInput); err != nil {
		respondError(w, r, err)
		return
	}

	event, err := api.Gateway.CreateEvent(r.Context(), info.UserID, req.calendarID(), req.EventInput)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (api *Api) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "eventID")

	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := api.Gateway.UpdateEvent(r.Context(), info.UserID, req.calendarID(), eventID, req.EventInput)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (api *Api) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "eventID")

	calendarID := r.URL.Query().Get("calendar_id")
	if calendarID == "" {
		calendarID = "primary"
	}

	if err := api.Gateway.DeleteEvent(r.Context(), info.UserID, calendarID, eventID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, fmt.Sprintf("event %s deleted", eventID))
}

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	"github.com/chronoplan-io/chronoplan/internal/models"
	"github.com/go-chi/chi/v5"
)

type timeBlockRequest struct {
	Title    string    `json:"title"`
	Notes    string    `json:"notes"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (req *timeBlockRequest) validate() error {
	if req.Title == "" {
		return apperr.New("validation_error", http.StatusBadRequest, "title must not be empty")
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return apperr.New("validation_error", http.StatusBadRequest, "starts_at and ends_at are required")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return apperr.New("validation_error", http.StatusBadRequest, "ends_at must be after starts_at")
	}
	return nil
}

func (api *Api) CreateTimeBlockHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req timeBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, r, err)
		return
	}

	block := &models.TimeBlock{
		UserID:   info.UserID,
		Title:    req.Title,
		Notes:    req.Notes,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	if err := api.Store.CreateTimeBlock(block); err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusCreated, block)
}

// ListTimeBlocksHandler returns blocks overlapping [from, to). The window
// defaults to the coming week.
func (api *Api) ListTimeBlocksHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from, to := now, now.Add(7*24*time.Hour)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "from must be RFC 3339"))
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "to must be RFC 3339"))
			return
		}
		to = parsed
	}

	blocks, err := api.Store.ListTimeBlocks(info.UserID, from, to)
	if err != nil {
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	if blocks == nil {
		blocks = []*models.TimeBlock{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"time_blocks": blocks})
}

func (api *Api) GetTimeBlockHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	block, err := api.Store.GetTimeBlock(info.UserID, chi.URLParam(r, "blockID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, r, apperr.ErrNotFound)
			return
		}
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusOK, block)
}

func (api *Api) UpdateTimeBlockHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req timeBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, r, err)
		return
	}

	block, err := api.Store.GetTimeBlock(info.UserID, chi.URLParam(r, "blockID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, r, apperr.ErrNotFound)
			return
		}
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}

	block.Title = req.Title
	block.Notes = req.Notes
	block.StartsAt = req.StartsAt
	block.EndsAt = req.EndsAt
	if err := api.Store.UpdateTimeBlock(block); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, r, apperr.ErrNotFound)
			return
		}
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondJSON(w, http.StatusOK, block)
}

func (api *Api) DeleteTimeBlockHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := sessionUser(w, r)
	if !ok {
		return
	}

	if err := api.Store.DeleteTimeBlock(info.UserID, chi.URLParam(r, "blockID")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, r, apperr.ErrNotFound)
			return
		}
		respondError(w, r, apperr.Wrap(err, apperr.ErrInternal, ""))
		return
	}
	respondMessage(w, http.StatusOK, "time block deleted")
}

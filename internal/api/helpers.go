package api

import (
	"encoding/json"
	"net/http"

	"github.com/chronoplan-io/chronoplan/internal/apperr"
	log "github.com/sirupsen/logrus"
)

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, messageResponse{Message: message})
}

// respondError writes the client-safe shape of an error and logs the full
// detail server-side. Unknown errors collapse to a generic internal error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", r.Method, r.URL.Path, err)
	}
	respondJSON(w, status, map[string]string{
		"code":    apperr.Code(err),
		"message": apperr.Message(err),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, apperr.New("validation_error", http.StatusBadRequest, "invalid request body"))
		return false
	}
	return true
}

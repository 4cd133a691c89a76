package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"contact-gateway/prefs"

	"github.com/gorilla/mux"
)

// GetPreferences returns the client's saved theme and locale, falling back
// to the configured defaults.
func (h *ContactHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["clientID"]

	p, err := h.prefs.Get(r.Context(), clientID)
	if err != nil {
		SendJSONError(w, http.StatusInternalServerError, err, "Could not load preferences")
		return
	}
	SendJSONSuccess(w, http.StatusOK, p)
}

// PutPreferences validates and persists both fields.
func (h *ContactHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["clientID"]

	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		SendJSONError(w, http.StatusBadRequest, errInvalidBody, "Request body must be valid JSON")
		return
	}

	if err := h.prefs.Set(r.Context(), clientID, p); err != nil {
		if errors.Is(err, prefs.ErrInvalidTheme) || errors.Is(err, prefs.ErrInvalidLocale) {
			SendJSONError(w, http.StatusBadRequest, err, "")
			return
		}
		SendJSONError(w, http.StatusInternalServerError, err, "Could not save preferences")
		return
	}

	SendJSONSuccess(w, http.StatusOK, p)
}

package handler

import (
	"errors"
	"net/http"

	"contact-gateway/model"

	"github.com/gorilla/mux"
)

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// Notifications returns the client's active queue, oldest first. Expired
// entries are already filtered out.
func (h *ContactHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["clientID"]

	active := h.notifier.Active(clientID)
	if active == nil {
		active = []model.Notification{}
	}
	SendJSONSuccess(w, http.StatusOK, notificationsResponse{Notifications: active})
}

// DismissNotification removes one notification without touching the rest.
func (h *ContactHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if !h.notifier.Dismiss(vars["clientID"], vars["id"]) {
		SendJSONError(w, http.StatusNotFound, errors.New("notification not found"), "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

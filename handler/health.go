package handler

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// Health reports service liveness. Redis being down degrades preferences
// but the submission pipeline keeps working, so it never fails the check.
func (h *ContactHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Redis: "ok"}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Redis = "unreachable"
		}
	} else {
		resp.Redis = "disabled"
	}

	SendJSONSuccess(w, http.StatusOK, resp)
}

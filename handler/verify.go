package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"contact-gateway/utils"
	"contact-gateway/verification"

	"github.com/gorilla/mux"
)

type beginVerificationRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type beginVerificationResponse struct {
	SessionID string    `json:"sessionID"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BeginVerification opens an email challenge for the requesting client.
func (h *ContactHandler) BeginVerification(w http.ResponseWriter, r *http.Request) {
	var req beginVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, errInvalidBody, "Request body must be valid JSON")
		return
	}

	if !h.validator.ValidEmail(req.Email) {
		SendJSONError(w, http.StatusBadRequest, errors.New("invalid email address"), "Provide a valid email address")
		return
	}
	if !h.validator.ValidName(req.Name) {
		SendJSONError(w, http.StatusBadRequest, errors.New("invalid name"), "Provide a valid name")
		return
	}

	clientID := utils.ClientFingerprint(r)

	// Opening a challenge sends an email, so it shares the resend budget.
	if !h.resendLimiter.Allow(clientID) {
		h.sendLimited(w, h.resendLimiter.RemainingTime(clientID), "Too many verification emails requested")
		return
	}

	if err := h.gate.Begin(clientID, req.Email, req.Name); err != nil {
		if errors.Is(err, verification.ErrDeliveryFailed) {
			SendJSONError(w, http.StatusBadGateway, err, "Could not send the verification email")
			return
		}
		SendJSONError(w, http.StatusInternalServerError, err, "Could not start verification")
		return
	}

	expiresAt, _ := h.gate.ChallengeExpiry(clientID)
	SendJSONSuccess(w, http.StatusAccepted, beginVerificationResponse{
		SessionID: clientID,
		ExpiresAt: expiresAt,
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

type verifyResponse struct {
	VerificationToken string `json:"verificationToken"`
}

// Verify checks a submitted code and mints a single-use token.
func (h *ContactHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, errInvalidBody, "Request body must be valid JSON")
		return
	}

	clientID := utils.ClientFingerprint(r)

	if !h.verifyLimiter.Allow(clientID) {
		h.sendLimited(w, h.verifyLimiter.RemainingTime(clientID), "Too many verification attempts")
		return
	}

	token, err := h.gate.Verify(clientID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrNoChallenge):
			SendJSONError(w, http.StatusNotFound, err, "Start verification first")
		case errors.Is(err, verification.ErrCodeExpired):
			SendJSONError(w, http.StatusGone, err, "The code expired; request a new one")
		case errors.Is(err, verification.ErrCodeMismatch):
			SendJSONError(w, http.StatusBadRequest, err,
				fmt.Sprintf("Incorrect code; %d attempts left", h.verifyLimiter.RemainingAttempts(clientID)))
		default:
			SendJSONError(w, http.StatusInternalServerError, err, "Could not verify the code")
		}
		return
	}

	SendJSONSuccess(w, http.StatusOK, verifyResponse{VerificationToken: token})
}

// ResendVerification issues a fresh code for an open challenge.
func (h *ContactHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	clientID := utils.ClientFingerprint(r)

	if !h.resendLimiter.Allow(clientID) {
		h.sendLimited(w, h.resendLimiter.RemainingTime(clientID), "Too many verification emails requested")
		return
	}

	if err := h.gate.Resend(clientID); err != nil {
		switch {
		case errors.Is(err, verification.ErrNoChallenge):
			SendJSONError(w, http.StatusNotFound, err, "Start verification first")
		case errors.Is(err, verification.ErrResendCooldown):
			h.sendLimited(w, h.gate.CooldownRemaining(clientID), "Wait before requesting another code")
		case errors.Is(err, verification.ErrDeliveryFailed):
			SendJSONError(w, http.StatusBadGateway, err, "Could not send the verification email")
		default:
			SendJSONError(w, http.StatusInternalServerError, err, "Could not resend the code")
		}
		return
	}

	expiresAt, _ := h.gate.ChallengeExpiry(clientID)
	SendJSONSuccess(w, http.StatusOK, beginVerificationResponse{
		SessionID: clientID,
		ExpiresAt: expiresAt,
	})
}

// CancelVerification discards a pending challenge (the user closed the
// verification dialog).
func (h *ContactHandler) CancelVerification(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		sessionID = utils.ClientFingerprint(r)
	}

	h.gate.Cancel(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) sendLimited(w http.ResponseWriter, retryAfter time.Duration, message string) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
	SendJSONError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"), message)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"contact-gateway/config"
	"contact-gateway/model"
	"contact-gateway/notify"
	"contact-gateway/prefs"
	"contact-gateway/ratelimit"
	"contact-gateway/submit"
	"contact-gateway/upstream"
	"contact-gateway/utils"
	"contact-gateway/validation"
	"contact-gateway/verification"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

var errInvalidBody = errors.New("invalid request body")

// ContactHandler exposes the submission pipeline over HTTP. Per-client
// identity comes from the request fingerprint, so browsers need no account
// to submit, verify, or read their notifications.
type ContactHandler struct {
	orchestrator  *submit.Orchestrator
	gate          *verification.Gate
	notifier      *notify.Center
	prefs         *prefs.Store
	validator     *validation.Validator
	submitLimiter *ratelimit.Limiter
	verifyLimiter *ratelimit.Limiter
	resendLimiter *ratelimit.Limiter
	redis         *redis.Client
	config        config.Config
}

// Limiters groups the three independent fixed-window budgets.
type Limiters struct {
	Submission   *ratelimit.Limiter
	Verification *ratelimit.Limiter
	Resend       *ratelimit.Limiter
}

func NewContactHandler(
	orchestrator *submit.Orchestrator,
	gate *verification.Gate,
	notifier *notify.Center,
	prefsStore *prefs.Store,
	validator *validation.Validator,
	limiters Limiters,
	rdb *redis.Client,
	cfg config.Config,
) *ContactHandler {
	return &ContactHandler{
		orchestrator:  orchestrator,
		gate:          gate,
		notifier:      notifier,
		prefs:         prefsStore,
		validator:     validator,
		submitLimiter: limiters.Submission,
		verifyLimiter: limiters.Verification,
		resendLimiter: limiters.Resend,
		redis:         rdb,
		config:        cfg,
	}
}

type submitRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Subject           string `json:"subject"`
	Message           string `json:"message"`
	VerificationToken string `json:"verificationToken"`
}

type submitResponse struct {
	Message           string    `json:"message"`
	SubmittedAt       time.Time `json:"submittedAt"`
	RemainingAttempts int       `json:"remainingAttempts"`
}

// Submit runs the full pipeline for one contact-form submission.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, errInvalidBody, "Request body must be valid JSON")
		return
	}

	clientID := utils.ClientFingerprint(r)
	input := model.FormInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}

	receipt, err := h.orchestrator.Submit(r.Context(), clientID, input, req.VerificationToken)
	if err != nil {
		h.sendSubmitError(w, err)
		return
	}

	SendJSONSuccess(w, http.StatusOK, submitResponse{
		Message:           receipt.Message,
		SubmittedAt:       receipt.SubmittedAt,
		RemainingAttempts: h.submitLimiter.RemainingAttempts(clientID),
	})
}

func (h *ContactHandler) sendSubmitError(w http.ResponseWriter, err error) {
	var valErr *submit.ValidationError
	if errors.As(err, &valErr) {
		SendJSONFieldErrors(w, valErr.Fields)
		return
	}

	var limitedErr *submit.RateLimitedError
	if errors.As(err, &limitedErr) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limitedErr.RetryAfter.Seconds())+1))
		SendJSONError(w, http.StatusTooManyRequests, err, "Submission limit reached")
		return
	}

	switch {
	case errors.Is(err, submit.ErrVerificationRequired):
		SendJSONError(w, http.StatusForbidden, err, "Verify your email address first")
	case errors.Is(err, submit.ErrSubmissionInFlight):
		SendJSONError(w, http.StatusConflict, err, "Wait for the current submission to finish")
	default:
		var serverErr *upstream.ServerError
		var netErr *upstream.NetworkError
		if errors.As(err, &serverErr) || errors.As(err, &netErr) {
			SendJSONError(w, http.StatusBadGateway, err, "The submission service is unavailable")
			return
		}
		log.Error().Err(err).Msg("Unexpected submission failure")
		SendJSONError(w, http.StatusInternalServerError, err, "Something went wrong")
	}
}

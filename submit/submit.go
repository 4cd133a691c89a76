package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contact-gateway/model"
	"contact-gateway/notify"
	"contact-gateway/ratelimit"
	"contact-gateway/upstream"
	"contact-gateway/validation"
	"contact-gateway/verification"

	"github.com/rs/zerolog/log"
)

var (
	// ErrVerificationRequired means the gate was not solved, or its token
	// expired, before submission.
	ErrVerificationRequired = errors.New("email verification required before submitting")

	// ErrSubmissionInFlight suppresses re-entrant submits (double-clicks)
	// while a pipeline run is still active for the client.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// ValidationError reports per-field failures. These are shown inline next to
// the fields, never as a toast, and never reach the network.
type ValidationError struct {
	Fields model.FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// RateLimitedError reports an exhausted submission budget.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", formatRemaining(e.RetryAfter))
}

// Forwarder performs the retried network submission. *upstream.Client in
// production; stubbed in tests.
type Forwarder interface {
	Submit(ctx context.Context, input model.FormInput, verificationToken string) (string, error)
}

// ContactCopier sends the site owner a copy of an accepted message.
type ContactCopier interface {
	SendContactCopy(name, fromEmail, subject, message string, submittedAt time.Time) error
}

// Orchestrator runs the contact-submission pipeline: sanitize and validate,
// check the submission rate limit, confirm the verification gate, then
// forward upstream with retry. Stages run strictly in that order and the
// pipeline short-circuits on the first failure. Every terminal outcome
// (success or final failure) produces exactly one notification; validation
// failures are the exception, being inline by design.
type Orchestrator struct {
	validator *validation.Validator
	limiter   *ratelimit.Limiter
	gate      *verification.Gate
	forwarder Forwarder
	notifier  *notify.Center
	copier    ContactCopier

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(validator *validation.Validator, limiter *ratelimit.Limiter, gate *verification.Gate, forwarder Forwarder, notifier *notify.Center) *Orchestrator {
	return &Orchestrator{
		validator: validator,
		limiter:   limiter,
		gate:      gate,
		forwarder: forwarder,
		notifier:  notifier,
		inFlight:  make(map[string]bool),
	}
}

// WithContactCopy enables owner copies of accepted messages. The copy is
// best-effort and never affects the submission outcome.
func (o *Orchestrator) WithContactCopy(copier ContactCopier) *Orchestrator {
	o.copier = copier
	return o
}

// Submit runs the pipeline for one form submission. The caller's input is
// never mutated; on failure the client keeps its typed content for retry.
func (o *Orchestrator) Submit(ctx context.Context, clientID string, input model.FormInput, verificationToken string) (*model.SubmitReceipt, error) {
	// At most one active pipeline per client. The check-and-set is a single
	// synchronous critical section so two rapid clicks cannot both pass.
	o.mu.Lock()
	if o.inFlight[clientID] {
		o.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	o.inFlight[clientID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, clientID)
		o.mu.Unlock()
	}()

	// 1. Validate. Field errors stay inline; no toast.
	sanitized := o.validator.Sanitize(input)
	if fieldErrs := o.validator.ValidateForm(sanitized); !fieldErrs.Valid() {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	// 2. Submission rate limit.
	if !o.limiter.Allow(clientID) {
		retryAfter := o.limiter.RemainingTime(clientID)
		o.notifier.Push(clientID, model.NotificationError,
			fmt.Sprintf("Too many submissions. Please try again in %s.", formatRemaining(retryAfter)))
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	// 3. Verification gate.
	if !o.gate.Valid(verificationToken) {
		o.notifier.Push(clientID, model.NotificationError,
			"Please verify your email address before sending your message.")
		return nil, ErrVerificationRequired
	}

	// 4. Forward upstream with retry. Intermediate retries are not surfaced;
	// only the terminal outcome notifies.
	message, err := o.forwarder.Submit(ctx, sanitized, verificationToken)
	if err != nil {
		o.notifier.Push(clientID, model.NotificationError, userMessage(err))
		log.Warn().Err(err).Str("client_id", clientID).Msg("Submission failed")
		return nil, err
	}

	// Success: the token is consumed so the next submission re-solves the
	// gate. Rate-limit state deliberately persists across successes.
	o.gate.Consume(verificationToken)

	if o.copier != nil {
		submittedAt := time.Now()
		go func() {
			if err := o.copier.SendContactCopy(sanitized.Name, sanitized.Email, sanitized.Subject, sanitized.Message, submittedAt); err != nil {
				log.Warn().Err(err).Msg("Failed to send owner copy")
			}
		}()
	}

	if message == "" {
		message = "Your message has been sent successfully!"
	}
	o.notifier.Push(clientID, model.NotificationSuccess, message)
	log.Info().Str("client_id", clientID).Msg("Submission forwarded")

	return &model.SubmitReceipt{SubmittedAt: time.Now(), Message: message}, nil
}

// userMessage maps a pipeline failure to the text shown to the user.
func userMessage(err error) string {
	var serverErr *upstream.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Message
	}

	var netErr *upstream.NetworkError
	if errors.As(err, &netErr) {
		return "Network error: please check your connection and try again."
	}

	return "Something went wrong while sending your message. Please try again later."
}

// formatRemaining renders a duration as "3m 20s" or "45s".
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	minutes := total / 60
	seconds := total % 60

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

package verification

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"contact-gateway/email"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoChallenge    = errors.New("no pending verification for this client")
	ErrCodeExpired    = errors.New("verification code has expired")
	ErrCodeMismatch   = errors.New("invalid verification code")
	ErrResendCooldown = errors.New("please wait before requesting another code")
	ErrDeliveryFailed = errors.New("failed to deliver verification code")
)

// challenge is one pending email one-time-code check.
type challenge struct {
	email      string
	name       string
	code       string
	expiresAt  time.Time
	lastSentAt time.Time
}

// Gate is the human-verification gate: a 6-digit code is emailed to the
// address on the form, and matching it mints an opaque single-use token the
// submission pipeline requires. One pending challenge per client.
//
// The clock is injected so tests can expire codes without waiting.
type Gate struct {
	mu         sync.Mutex
	challenges map[string]*challenge
	tokens     map[string]time.Time

	sender         email.Sender
	codeTTL        time.Duration
	resendCooldown time.Duration
	tokenTTL       time.Duration
	now            func() time.Time
}

func NewGate(sender email.Sender, codeTTL, resendCooldown, tokenTTL time.Duration) *Gate {
	return NewGateWithClock(sender, codeTTL, resendCooldown, tokenTTL, time.Now)
}

// NewGateWithClock is NewGate with an explicit clock, for tests.
func NewGateWithClock(sender email.Sender, codeTTL, resendCooldown, tokenTTL time.Duration, now func() time.Time) *Gate {
	return &Gate{
		challenges:     make(map[string]*challenge),
		tokens:         make(map[string]time.Time),
		sender:         sender,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		tokenTTL:       tokenTTL,
		now:            now,
	}
}

// Begin opens a challenge for clientID: generates a fresh code and delivers
// it to toEmail. Delivery happens exactly once per generated code; if it
// fails, no challenge is opened and the caller sees a distinct error rather
// than a silently unreachable code-entry step.
func (g *Gate) Begin(clientID, toEmail, toName string) error {
	code, err := email.GenerateCode()
	if err != nil {
		return err
	}

	now := g.now()
	expiresAt := now.Add(g.codeTTL)

	if err := g.sender.SendVerificationCode(toEmail, toName, code, expiresAt); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Verification code delivery failed")
		return ErrDeliveryFailed
	}

	g.mu.Lock()
	g.challenges[clientID] = &challenge{
		email:      toEmail,
		name:       toName,
		code:       code,
		expiresAt:  expiresAt,
		lastSentAt: now,
	}
	g.mu.Unlock()

	log.Info().Str("client_id", clientID).Time("expires_at", expiresAt).Msg("Verification challenge opened")
	return nil
}

// Verify checks the entered code against the pending challenge. Comparison is
// exact: codes are digits only, no case folding. An expired code is terminal
// for that challenge; a mismatch leaves the challenge (and its timer) intact
// for re-entry. Success closes the challenge and mints a single-use token.
func (g *Gate) Verify(clientID, code string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.challenges[clientID]
	if !ok {
		return "", ErrNoChallenge
	}

	now := g.now()
	if !now.Before(ch.expiresAt) {
		return "", ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(ch.code)) != 1 {
		return "", ErrCodeMismatch
	}

	delete(g.challenges, clientID)

	token := uuid.New().String()
	g.tokens[token] = now.Add(g.tokenTTL)

	log.Info().Str("client_id", clientID).Msg("Verification gate passed")
	return token, nil
}

// Resend issues a new code for an existing challenge, resetting its
// expiration window. Resends have their own cooldown, independent of the
// submission rate limit.
func (g *Gate) Resend(clientID string) error {
	g.mu.Lock()
	ch, ok := g.challenges[clientID]
	if !ok {
		g.mu.Unlock()
		return ErrNoChallenge
	}

	now := g.now()
	if now.Sub(ch.lastSentAt) < g.resendCooldown {
		g.mu.Unlock()
		return ErrResendCooldown
	}
	toEmail, toName := ch.email, ch.name
	g.mu.Unlock()

	code, err := email.GenerateCode()
	if err != nil {
		return err
	}

	expiresAt := now.Add(g.codeTTL)
	if err := g.sender.SendVerificationCode(toEmail, toName, code, expiresAt); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Verification code redelivery failed")
		return ErrDeliveryFailed
	}

	g.mu.Lock()
	// The challenge may have been cancelled while the email was in flight.
	if ch, ok := g.challenges[clientID]; ok {
		ch.code = code
		ch.expiresAt = expiresAt
		ch.lastSentAt = now
	}
	g.mu.Unlock()

	log.Info().Str("client_id", clientID).Time("expires_at", expiresAt).Msg("Verification code resent")
	return nil
}

// Cancel discards the pending challenge for clientID, if any. Closing the
// verification step must not leak a stale code into a later attempt.
func (g *Gate) Cancel(clientID string) {
	g.mu.Lock()
	delete(g.challenges, clientID)
	g.mu.Unlock()
}

// CooldownRemaining reports how long until clientID may request a resend.
func (g *Gate) CooldownRemaining(clientID string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.challenges[clientID]
	if !ok {
		return 0
	}

	remaining := g.resendCooldown - g.now().Sub(ch.lastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ChallengeExpiry returns the pending challenge's expiration time, if any.
func (g *Gate) ChallengeExpiry(clientID string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.challenges[clientID]
	if !ok {
		return time.Time{}, false
	}
	return ch.expiresAt, true
}

// Valid reports whether token exists and has not expired.
func (g *Gate) Valid(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiresAt, ok := g.tokens[token]
	return ok && g.now().Before(expiresAt)
}

// Consume invalidates token after a successful submission, forcing the gate
// to be re-solved for the next one. Reports whether the token was valid.
func (g *Gate) Consume(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiresAt, ok := g.tokens[token]
	if !ok {
		return false
	}
	delete(g.tokens, token)
	return g.now().Before(expiresAt)
}

// Sweep drops stale challenges and expired tokens. Housekeeping only.
// Expired challenges are kept for one extra code lifetime so that Resend
// still works after the countdown hits zero.
func (g *Gate) Sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, ch := range g.challenges {
		if now.After(ch.expiresAt.Add(g.codeTTL)) {
			delete(g.challenges, id)
		}
	}
	for token, expiresAt := range g.tokens {
		if !now.Before(expiresAt) {
			delete(g.tokens, token)
		}
	}
}

// StartSweeping runs Sweep every interval until stop is closed.
func (g *Gate) StartSweeping(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				g.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

package verification

import (
	"errors"
	"testing"
	"time"
)

// fakeSender records delivered codes instead of sending email.
type fakeSender struct {
	codes    []string
	failNext bool
}

func (s *fakeSender) SendVerificationCode(toEmail, toName, code string, expiresAt time.Time) error {
	if s.failNext {
		s.failNext = false
		return errors.New("smtp unavailable")
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *fakeSender) lastCode() string {
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestGate() (*Gate, *fakeSender, *fakeClock) {
	sender := &fakeSender{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewGateWithClock(sender, 300*time.Second, 60*time.Second, 600*time.Second, clock.Now)
	return gate, sender, clock
}

func TestVerify_CorrectCodePassesGate(t *testing.T) {
	gate, sender, _ := newTestGate()

	if err := gate.Begin("client-a", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if len(sender.codes) != 1 {
		t.Fatalf("delivery invoked %d times, want exactly 1", len(sender.codes))
	}

	token, err := gate.Verify("client-a", sender.lastCode())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if token == "" {
		t.Error("Verify() should mint a non-empty token")
	}
	if !gate.Valid(token) {
		t.Error("minted token should be valid")
	}

	// The challenge is closed; the same code cannot be verified twice.
	if _, err := gate.Verify("client-a", sender.lastCode()); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("second Verify() err = %v, want ErrNoChallenge", err)
	}
}

func TestVerify_WrongCodeIsRetryable(t *testing.T) {
	gate, sender, _ := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")

	if _, err := gate.Verify("client-a", "000000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("Verify(wrong) err = %v, want ErrCodeMismatch", err)
	}

	// A mismatch must not close the challenge or restart its timer.
	token, err := gate.Verify("client-a", sender.lastCode())
	if err != nil {
		t.Fatalf("Verify(correct) after mismatch error = %v", err)
	}
	if token == "" {
		t.Error("expected a token after recovering from a mismatch")
	}
}

func TestVerify_ExpiredCodeIsTerminal(t *testing.T) {
	gate, sender, clock := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")
	code := sender.lastCode()

	clock.Advance(300 * time.Second)

	if _, err := gate.Verify("client-a", code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("Verify() after expiry err = %v, want ErrCodeExpired", err)
	}

	// Even the correct code stays rejected until a resend.
	if _, err := gate.Verify("client-a", code); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("repeat Verify() after expiry err = %v, want ErrCodeExpired", err)
	}

	clock.Advance(61 * time.Second)
	if err := gate.Resend("client-a"); err != nil {
		t.Fatalf("Resend() after expiry error = %v", err)
	}

	token, err := gate.Verify("client-a", sender.lastCode())
	if err != nil {
		t.Fatalf("Verify() with resent code error = %v", err)
	}
	if token == "" {
		t.Error("expected a token from the resent code")
	}
}

func TestResend_CooldownEnforced(t *testing.T) {
	gate, sender, clock := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")
	firstCode := sender.lastCode()

	if err := gate.Resend("client-a"); !errors.Is(err, ErrResendCooldown) {
		t.Fatalf("immediate Resend() err = %v, want ErrResendCooldown", err)
	}

	clock.Advance(59 * time.Second)
	if err := gate.Resend("client-a"); !errors.Is(err, ErrResendCooldown) {
		t.Fatalf("Resend() at 59s err = %v, want ErrResendCooldown", err)
	}
	if got := gate.CooldownRemaining("client-a"); got != time.Second {
		t.Errorf("CooldownRemaining() = %v, want 1s", got)
	}

	clock.Advance(time.Second)
	if err := gate.Resend("client-a"); err != nil {
		t.Fatalf("Resend() after cooldown error = %v", err)
	}
	if len(sender.codes) != 2 {
		t.Fatalf("delivery invoked %d times, want 2", len(sender.codes))
	}

	// The resend supersedes the old code and resets the window.
	if _, err := gate.Verify("client-a", firstCode); !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("old code after resend err = %v, want ErrCodeMismatch", err)
	}
	expiry, ok := gate.ChallengeExpiry("client-a")
	if !ok {
		t.Fatal("challenge should still be pending")
	}
	if want := clock.Now().Add(300 * time.Second); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}
}

func TestBegin_DeliveryFailureOpensNoChallenge(t *testing.T) {
	gate, sender, _ := newTestGate()
	sender.failNext = true

	if err := gate.Begin("client-a", "ada@example.com", "Ada"); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Begin() err = %v, want ErrDeliveryFailed", err)
	}
	if _, err := gate.Verify("client-a", "123456"); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("Verify() err = %v, want ErrNoChallenge", err)
	}
}

func TestCancel_DiscardsPendingChallenge(t *testing.T) {
	gate, sender, _ := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")
	gate.Cancel("client-a")

	if _, err := gate.Verify("client-a", sender.lastCode()); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("Verify() after Cancel err = %v, want ErrNoChallenge", err)
	}
}

func TestConsume_TokenIsSingleUse(t *testing.T) {
	gate, sender, _ := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")
	token, err := gate.Verify("client-a", sender.lastCode())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if !gate.Consume(token) {
		t.Fatal("first Consume() should succeed")
	}
	if gate.Consume(token) {
		t.Error("second Consume() should fail")
	}
	if gate.Valid(token) {
		t.Error("consumed token should no longer be valid")
	}
}

func TestValid_TokenExpires(t *testing.T) {
	gate, sender, clock := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")
	token, _ := gate.Verify("client-a", sender.lastCode())

	clock.Advance(600 * time.Second)
	if gate.Valid(token) {
		t.Error("token should expire after its TTL")
	}
	if gate.Consume(token) {
		t.Error("expired token should not consume successfully")
	}
}

func TestSweep_KeepsResendableChallenges(t *testing.T) {
	gate, _, clock := newTestGate()

	gate.Begin("client-a", "ada@example.com", "Ada")

	// Just expired: swept later, resendable now.
	clock.Advance(301 * time.Second)
	gate.Sweep()
	if err := gate.Resend("client-a"); err != nil {
		t.Fatalf("Resend() on recently expired challenge error = %v", err)
	}

	// Long stale: swept.
	clock.Advance(601 * time.Second)
	gate.Sweep()
	if err := gate.Resend("client-a"); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("Resend() on stale challenge err = %v, want ErrNoChallenge", err)
	}
}

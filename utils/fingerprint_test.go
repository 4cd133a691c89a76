package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientFingerprintStable(t *testing.T) {
	r1 := httptest.NewRequest("POST", "/contact", nil)
	r1.Header.Set("X-Client-ID", "abc-123")
	r1.Header.Set("User-Agent", "Mozilla/5.0")

	r2 := httptest.NewRequest("GET", "/preferences/x", nil)
	r2.Header.Set("X-Client-ID", "abc-123")
	r2.Header.Set("User-Agent", "Mozilla/5.0")

	if ClientFingerprint(r1) != ClientFingerprint(r2) {
		t.Error("same client id and user agent must fingerprint identically")
	}
}

func TestClientFingerprintDistinguishes(t *testing.T) {
	base := httptest.NewRequest("POST", "/contact", nil)
	base.Header.Set("User-Agent", "Mozilla/5.0")
	base.RemoteAddr = "10.0.0.1:4000"

	otherAgent := httptest.NewRequest("POST", "/contact", nil)
	otherAgent.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh)")
	otherAgent.RemoteAddr = "10.0.0.1:4001"

	// Same IP, different browser: separate budgets.
	if ClientFingerprint(base) == ClientFingerprint(otherAgent) {
		t.Error("different user agents behind one IP should not collide")
	}

	withID := httptest.NewRequest("POST", "/contact", nil)
	withID.Header.Set("X-Client-ID", "abc-123")
	withID.Header.Set("User-Agent", "Mozilla/5.0")
	withID.RemoteAddr = "10.0.0.1:4000"

	if ClientFingerprint(base) == ClientFingerprint(withID) {
		t.Error("header-identified clients get their own key")
	}
}

func TestClientFingerprintLength(t *testing.T) {
	r := httptest.NewRequest("POST", "/contact", nil)
	if got := ClientFingerprint(r); len(got) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(got))
	}
}

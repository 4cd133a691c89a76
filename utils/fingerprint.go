package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"contact-gateway/security"
)

// ClientFingerprint derives a stable identifier for rate limiting,
// verification sessions, and notification queues. Clients that send an
// X-Client-ID header (issued on their first visit) are keyed by it; the
// fallback mixes the address and user agent so distinct visitors behind a
// shared IP do not collide on one budget.
func ClientFingerprint(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return fingerprint(id + "|" + r.UserAgent())
	}
	return fingerprint(security.ClientIP(r) + "|" + r.UserAgent())
}

func fingerprint(material string) string {
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:32]
}

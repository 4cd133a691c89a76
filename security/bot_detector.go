package security

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BotDetector flags automated clients before they reach the contact
// pipeline. A form endpoint has no legitimate crawler traffic, so anything
// that self-identifies as a script gets blocked outright, plus anything
// hammering the endpoint faster than a human could.
type BotDetector struct {
	tracker map[string]*requestHistory
	mu      sync.Mutex

	maxRequestsPerMinute int
	cleanupInterval      time.Duration
}

type requestHistory struct {
	requests []time.Time
	lastSeen time.Time
}

var scriptedClients = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"okhttp",
	"node-fetch",
	"axios",
	"headless",
}

func NewBotDetector(maxRequestsPerMinute int) *BotDetector {
	bd := &BotDetector{
		tracker:              make(map[string]*requestHistory),
		maxRequestsPerMinute: maxRequestsPerMinute,
		cleanupInterval:      5 * time.Minute,
	}

	go bd.cleanupOldEntries()

	return bd
}

// IsBot reports whether the request looks automated, and why.
func (bd *BotDetector) IsBot(r *http.Request) (bool, string) {
	userAgent := r.UserAgent()
	ip := ClientIP(r)

	if bd.isScriptedUserAgent(userAgent) {
		return true, "scripted_user_agent"
	}

	if bd.isSuspiciousUserAgent(userAgent) {
		return true, "suspicious_user_agent"
	}

	if bd.exceedsRequestRate(ip) {
		return true, "excessive_request_rate"
	}

	return false, ""
}

func (bd *BotDetector) isScriptedUserAgent(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, pattern := range scriptedClients {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (bd *BotDetector) isSuspiciousUserAgent(userAgent string) bool {
	// Real browsers send long user agents; an empty or tiny one is a
	// hand-rolled client.
	if len(userAgent) < 10 {
		return true
	}

	hasBrowserMarker := strings.Contains(userAgent, "Mozilla") ||
		strings.Contains(userAgent, "Chrome") ||
		strings.Contains(userAgent, "Safari") ||
		strings.Contains(userAgent, "Firefox") ||
		strings.Contains(userAgent, "Edge") ||
		strings.Contains(userAgent, "Opera")

	return !hasBrowserMarker
}

func (bd *BotDetector) exceedsRequestRate(ip string) bool {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	now := time.Now()
	oneMinuteAgo := now.Add(-1 * time.Minute)

	history, exists := bd.tracker[ip]
	if !exists {
		bd.tracker[ip] = &requestHistory{
			requests: []time.Time{now},
			lastSeen: now,
		}
		return false
	}

	recent := history.requests[:0]
	for _, reqTime := range history.requests {
		if reqTime.After(oneMinuteAgo) {
			recent = append(recent, reqTime)
		}
	}
	recent = append(recent, now)
	history.requests = recent
	history.lastSeen = now

	if len(recent) > bd.maxRequestsPerMinute {
		log.Warn().
			Str("ip", ip).
			Int("requests", len(recent)).
			Msg("Request rate exceeded for contact endpoints")
		return true
	}

	return false
}

func (bd *BotDetector) cleanupOldEntries() {
	ticker := time.NewTicker(bd.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		bd.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for ip, history := range bd.tracker {
			if history.lastSeen.Before(cutoff) {
				delete(bd.tracker, ip)
			}
		}
		tracked := len(bd.tracker)
		bd.mu.Unlock()

		log.Debug().Int("tracked_ips", tracked).Msg("Cleaned up bot detection tracker")
	}
}

// ClientIP extracts the client address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Stats exposes tracker size for the health endpoint.
func (bd *BotDetector) Stats() map[string]interface{} {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	return map[string]interface{}{
		"tracked_ips":             len(bd.tracker),
		"max_requests_per_minute": bd.maxRequestsPerMinute,
	}
}

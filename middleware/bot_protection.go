package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"contact-gateway/security"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// BotProtection blocks suspected automated clients before the contact
// pipeline sees them. Detections are counted in Redis for later review.
type BotProtection struct {
	detector *security.BotDetector
	enabled  bool
	redis    *redis.Client
}

func NewBotProtection(maxRequestsPerMinute int, enabled bool, rdb *redis.Client) *BotProtection {
	return &BotProtection{
		detector: security.NewBotDetector(maxRequestsPerMinute),
		enabled:  enabled,
		redis:    rdb,
	}
}

func (bp *BotProtection) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !bp.enabled {
			next.ServeHTTP(w, r)
			return
		}

		isBot, reason := bp.detector.IsBot(r)
		if !isBot {
			next.ServeHTTP(w, r)
			return
		}

		log.Warn().
			Str("ip", security.ClientIP(r)).
			Str("user_agent", r.UserAgent()).
			Str("reason", reason).
			Str("path", r.URL.Path).
			Msg("Bot detected - request blocked")

		if bp.redis != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			bp.redis.Incr(ctx, "security:bot_detections")
			bp.redis.ZIncrBy(ctx, "security:blocked_ips", 1, security.ClientIP(r))
			bp.redis.ZIncrBy(ctx, "security:block_reasons", 1, reason)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "Request blocked",
			"message": "This request appears to be automated. If you believe this is an error, please contact support.",
		})
	})
}

// Stats exposes detector counters for the health endpoint.
func (bp *BotProtection) Stats() map[string]interface{} {
	return bp.detector.Stats()
}

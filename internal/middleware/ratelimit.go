package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/pkg/clientip"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

const (
	// RateLimitWindow is the fixed window shared by all instances.
	RateLimitWindow = 60 * time.Second
	// RateLimitMaxRequests is the per-IP budget per window across the fleet.
	RateLimitMaxRequests = 300
	RateLimitKeyPrefix   = "ratelimit:"
	// BlockedIPKeyPrefix marks IPs that blew through the budget.
	BlockedIPKeyPrefix = "blocked_ip:"
	BlockedIPDuration  = 15 * time.Minute
)

func writeLimitError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
		"detail":  message,
	})
}

// RateLimitMiddleware enforces a fleet-wide fixed-window limit in Redis and
// blocks offending IPs for BlockedIPDuration. Without Redis, or when Redis
// errors, requests are let through.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := database.RedisClient
		if client == nil || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := clientip.RealClientIP(r)
		blockedKey := BlockedIPKeyPrefix + ip

		if n, err := client.Exists(ctx, blockedKey).Result(); err == nil && n > 0 {
			writeLimitError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		key := RateLimitKeyPrefix + ip
		n, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.L().Warn("rate limit check failed; allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if n == 1 {
			client.Expire(ctx, key, RateLimitWindow)
		}

		count := int(n)
		if count > RateLimitMaxRequests {
			if err := client.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err == nil {
				logger.L().Warn("ip blocked for excessive requests", "ip", ip, "count", count)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(BlockedIPDuration.Seconds())))
			writeLimitError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-count))
		next.ServeHTTP(w, r)
	})
}

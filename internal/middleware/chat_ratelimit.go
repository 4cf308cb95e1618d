package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/moodjournal-backend/pkg/clientip"
)

// Chat history: 30 req/min burst 20 per IP. Opening the WebSocket is limited
// separately at 6/min burst 3 so a reconnect loop can't hammer token checks.
const (
	chatHistoryBurst = 20
	chatSocketBurst  = 3
)

var (
	chatHistoryLimiters = newIPLimiters(rate.Limit(0.5), chatHistoryBurst)
	chatSocketLimiters  = newIPLimiters(rate.Limit(0.1), chatSocketBurst)
)

// ChatRateLimit applies only to GET /chat/messages/* and /ws/chat.
func ChatRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		var limiters *ipLimiters
		var limit int
		switch {
		case strings.HasPrefix(r.URL.Path, "/chat/messages/"):
			limiters, limit = chatHistoryLimiters, chatHistoryBurst
		case r.URL.Path == "/ws/chat":
			limiters, limit = chatSocketLimiters, chatSocketBurst
		default:
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		if !limiters.allow(clientip.RealClientIP(r)) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeLimitError(w, http.StatusTooManyRequests, "Too many chat requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{"https://moodjournal.app"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/journals", nil)
	req.Header.Set("Origin", "https://moodjournal.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://moodjournal.app", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	h := CORS([]string{"https://moodjournal.app"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/journals", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitBlocksAfterBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = nil
	})

	h := RateLimitMiddleware(okHandler)
	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/mood", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < RateLimitMaxRequests; i++ {
		require.Equal(t, http.StatusOK, serve().Code)
	}
	rec := serve()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detail":"Rate limit exceeded. Please try again later."`)
	assert.True(t, mr.Exists(BlockedIPKeyPrefix+"203.0.113.9"))

	mr.FastForward(RateLimitWindow)
	assert.Equal(t, http.StatusTooManyRequests, serve().Code, "block outlives the window")
}

func TestRateLimitWithoutRedis(t *testing.T) {
	database.RedisClient = nil
	rec := httptest.NewRecorder()
	RateLimitMiddleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mood", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRateLimitOnlyCoversChatRoutes(t *testing.T) {
	h := ChatRateLimit(okHandler)
	serve := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "198.51.100.4:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < chatSocketBurst; i++ {
		require.Equal(t, http.StatusOK, serve("/ws/chat"))
	}
	assert.Equal(t, http.StatusTooManyRequests, serve("/ws/chat"))
	assert.Equal(t, http.StatusOK, serve("/chat/messages/3"))
	assert.Equal(t, http.StatusOK, serve("/journals"))
}

func TestLoginRateLimit(t *testing.T) {
	h := LoginRateLimit(okHandler)
	serve := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "192.0.2.77:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve(http.MethodPost, "/signin"))
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(http.MethodPost, "/signup"))
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/users/me"))
}

func TestHostCheck(t *testing.T) {
	h := HostCheck("api.moodjournal.app")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "api.moodjournal.app:443"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.Host = "other.host"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuthRejectsMissingAndBadTokens(t *testing.T) {
	services.ConfigureTokens("test-secret", time.Hour)
	h := RequireAuth(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rec.Body.String(), `"detail":"Could not validate credentials"`)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestUserContextRoundTrip(t *testing.T) {
	_, ok := UserFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)

	u := &models.User{ID: 4, Role: models.RolePatient}
	got, ok := UserFromContext(WithUser(httptest.NewRequest(http.MethodGet, "/", nil).Context(), u))
	require.True(t, ok)
	assert.Equal(t, int64(4), got.ID)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestLogger(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	RequestLogger(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

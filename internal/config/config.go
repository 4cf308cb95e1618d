package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	PostgresURI    string
	RedisURI       string // optional; empty disables pub/sub fan-out, caching and Redis rate limits
	MongoURI       string // optional; empty disables batch run reports
	TokenSecret    string
	TokenTTL       time.Duration
	EncryptionKey  string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // Raw HOST env (e.g. https://api.moodjournal.app)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.
	LogMode        string
	TrustProxy     bool // honour X-Forwarded-For when behind a proxy

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	ImageDir            string // local image fallback when Cloudinary is not configured

	GoogleTokenInfoURL string

	// Depression-risk batch scoring
	BatchToken      string
	ModelEndpoint   string
	BackendEndpoint string // prefix for relative image paths handed to the model service
	RiskWindowSize  int
	RiskSchedule    string // cron expression; empty disables the in-process schedule
}

const defaultGoogleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo?alt=json&access_token="

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8000")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:8081"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// A backend on api.example.com serves https://example.com and https://www.example.com
	if h := bareHost(host); h != "" && h != "localhost" && strings.Count(h, ".") >= 2 {
		domain := h[strings.Index(h, ".")+1:]
		for _, origin := range []string{"https://" + domain, "https://www." + domain} {
			if !containsOrigin(allowedOrigins, origin) {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	logMode := getEnv("LOG_MODE", "")
	if logMode == "" {
		logMode = env
	}

	return &Config{
		PostgresURI:         getEnv("POSTGRES_URI", getEnv("DATABASE_URL", "postgres://localhost:5432/moodjournal?sslmode=disable")),
		RedisURI:            getEnv("REDIS_URI", ""),
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		TokenSecret:         getEnv("TOKEN_SECRET_KEY", getEnv("JWT_SECRET", "your-secret-key-change-in-production")),
		TokenTTL:            getEnvDuration("TOKEN_TTL", 30*24*time.Hour),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		Port:                getEnv("PORT", "8000"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:8081"),
		AllowedOrigins:      allowedOrigins,
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		LogMode:             logMode,
		TrustProxy:          strings.EqualFold(getEnv("TRUST_PROXY", ""), "true"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		ImageDir:            getEnv("IMAGE_DIR", "images"),
		GoogleTokenInfoURL:  getEnv("GOOGLE_TOKEN_INFO_URL", defaultGoogleTokenInfoURL),
		BatchToken:          getEnv("BATCH_TOKEN", ""),
		ModelEndpoint:       getEnv("MODEL_ENDPOINT", "http://localhost:8001/check"),
		BackendEndpoint:     strings.TrimRight(getEnv("BACKEND_ENDPOINT", host), "/"),
		RiskWindowSize:      getEnvInt("RISK_WINDOW_SIZE", 64),
		RiskSchedule:        getEnv("RISK_SCHEDULE", ""),
	}
}

// CloudinaryConfigured reports whether all three Cloudinary credentials are set.
func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// bareHost strips scheme, path and port from a host URL.
func bareHost(raw string) string {
	h := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

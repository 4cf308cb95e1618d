package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/moodjournal-backend/internal/config"
	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/handlers"
	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/internal/middleware"
	"github.com/AnshRaj112/moodjournal-backend/internal/routes"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
	"github.com/AnshRaj112/moodjournal-backend/pkg/clientip"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
	"github.com/AnshRaj112/moodjournal-backend/pkg/observability"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	logger.SetDefault(lg)
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, lg, observability.TracingConfig{
		ServiceName: "moodjournal-backend",
		Environment: cfg.Environment,
	})
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(c)
	}()

	if cfg.EncryptionKey == "" {
		lg.Warn("⚠️  ENCRYPTION_KEY not set; social account tokens are stored unencrypted. Generate one with: openssl rand -base64 32")
	} else if err := utils.ConfigureEncryption(cfg.EncryptionKey); err != nil {
		lg.Fatal("ENCRYPTION_KEY is invalid (must be base64-encoded 32 bytes)", "error", err)
	} else {
		lg.Info("✅ Encryption key configured")
	}

	services.ConfigureTokens(cfg.TokenSecret, cfg.TokenTTL)
	services.GoogleTokenInfoURL = cfg.GoogleTokenInfoURL
	clientip.TrustForwardedFor = cfg.TrustProxy

	lg.Info("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		lg.Fatal("failed to connect to PostgreSQL", "error", err)
	}
	defer database.DisconnectPostgres()

	lg.Info("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		lg.Fatal("failed to connect to Redis", "error", err)
	}
	defer database.DisconnectRedis()

	if err := database.Connect(cfg.MongoURI); err != nil {
		lg.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer database.Disconnect()

	if err := handlers.InitImageStore(cfg); err != nil {
		lg.Warn("⚠️  image storage unavailable; image uploads will fail", "error", err)
	}

	var reports services.RiskReportStore
	if mongoReports := services.NewMongoRiskReports(); mongoReports != nil {
		if err := mongoReports.EnsureIndexes(ctx); err != nil {
			lg.Warn("⚠️  failed to ensure batch report indexes", "error", err)
		} else {
			lg.Info("✅ MongoDB batch report indexes ensured")
		}
		reports = mongoReports
	}

	scorer := services.NewRiskScorer(services.NewHTTPModelClient(cfg.ModelEndpoint), cfg.BackendEndpoint, cfg.RiskWindowSize, reports)
	handlers.InitRiskHandlers(scorer, reports, cfg.BatchToken)
	if cfg.BatchToken == "" {
		lg.Warn("⚠️  BATCH_TOKEN not set; /batch is disabled")
	}
	if cfg.RiskSchedule != "" {
		stopSchedule, err := services.StartRiskSchedule(ctx, cfg.RiskSchedule, scorer)
		if err != nil {
			lg.Fatal("invalid RISK_SCHEDULE", "schedule", cfg.RiskSchedule, "error", err)
		}
		defer stopSchedule()
	}

	if database.RedisClient != nil {
		services.StartRedisChatSubscriber(ctx)
	}

	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit.
	// Everywhere: the Redis fixed window (a no-op without Redis) and chat limits.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		lg.Info("✅ Production security enabled", "allowed_host", cfg.AllowedHost)
	}
	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.ChatRateLimit)

	routes.SetupRoutes(r, cfg.ImageDir)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		lg.Info("🚀 Server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/moodjournal-backend/internal/inference"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
	"github.com/AnshRaj112/moodjournal-backend/pkg/observability"
)

func main() {
	configPath := flag.String("config", envOr("INFERENCE_CONFIG", "configs/inference.yaml"), "path to the YAML config")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := inference.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	logger.SetDefault(lg)
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, lg, observability.TracingConfig{
		ServiceName: "moodjournal-inference",
		Environment: cfg.Environment,
	})
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(c)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           inference.NewRouter(inference.NewHTTPService(cfg), cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("🚀 Inference service starting", "port", cfg.Port, "window_size", cfg.WindowSize, "model", cfg.ModelURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("inference server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

const checkTimeout = 2 * time.Minute

type errorBody struct {
	Detail string `json:"detail"`
}

// NewRouter exposes POST /check plus health and metrics endpoints.
func NewRouter(svc *Service, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Post("/check", checkHandler(svc))
	return r
}

func checkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Invalid request body"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		out, err := svc.Check(ctx, req)
		switch {
		case errors.Is(err, ErrInvalidTimestamp):
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		case err != nil:
			logger.L().Error("inference check failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Inference failed"})
		default:
			writeJSON(w, http.StatusOK, out)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/moodjournal-backend/internal/handlers"
	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/internal/middleware"
)

// SetupRoutes registers every HTTP and WebSocket route. imageDir is served
// under /images/ for locally stored uploads.
func SetupRoutes(r *chi.Mux, imageDir string) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/images/*", http.StripPrefix("/images/", imageFiles(imageDir)))

	// Public
	r.Post("/signup", handlers.Signup)
	r.Post("/signin", handlers.Signin)
	r.Post("/signin/google", handlers.SigninGoogle)
	r.Get("/users/check-email", handlers.CheckEmail)
	r.Get("/ws/chat", handlers.ChatWebSocket)
	r.Get("/batch", handlers.RunRiskBatch)
	r.Get("/batch/runs", handlers.ListRiskBatchRuns)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/users/me", handlers.GetMe)
		r.Patch("/users/me", handlers.UpdateMe)
		r.Get("/users/stats", handlers.GetStats)
		r.Post("/social-accounts", handlers.CreateSocialAccounts)

		r.Post("/mood", handlers.CreateMoodEntry)
		r.Get("/mood", handlers.ListMoodEntries)
		r.Get("/mood/id/{id}", handlers.GetMoodEntryByID)
		r.Get("/mood/date/{date}", handlers.GetMoodEntryByDate)
		r.Get("/mood/date-range", handlers.GetMoodEntriesInRange)

		r.Post("/journals", handlers.CreateJournalEntry)
		r.Get("/journals", handlers.ListJournalEntries)
		r.Get("/journals/id/{id}", handlers.GetJournalEntryByID)
		r.Get("/journals/date/{date}", handlers.GetJournalEntryByDate)

		r.Post("/guided-journals", handlers.CreateGuidedJournalEntry)
		r.Get("/guided-journals", handlers.ListGuidedJournalEntries)
		r.Get("/guided-journals/id/{id}", handlers.GetGuidedJournalEntryByID)
		r.Get("/guided-journals/date/{date}", handlers.GetGuidedJournalEntryByDate)

		r.Post("/assign-therapist/{therapist_id}", handlers.AssignTherapist)
		r.Delete("/unassign-therapist", handlers.UnassignTherapist)
		r.Get("/therapist", handlers.GetTherapist)
		r.Get("/patients", handlers.GetPatients)
		r.Get("/patient-data/{id}", handlers.GetPatientData)
		r.Patch("/patient-data", handlers.UpdatePatientData)
		r.Get("/therapists", handlers.ListTherapists)
		r.Get("/therapist-data/{id}", handlers.GetTherapistData)
		r.Patch("/therapist-data", handlers.UpdateTherapistData)

		r.Get("/chat/messages/{other_user_id}", handlers.LoadChatHistory)

		r.Get("/user/depression-risks/{user_id}", handlers.GetDepressionRisks)
		r.Get("/user/depression-risk/{user_id}", handlers.GetDepressionRisk)
	})
}

// imageFiles serves files from dir without directory listings.
func imageFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

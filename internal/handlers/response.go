package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/moodjournal-backend/internal/middleware"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

const (
	requestTimeout = 5 * time.Second
	// Image uploads go through Cloudinary.
	uploadTimeout = 30 * time.Second
)

const (
	msgInvalidBody     = "Invalid request body"
	msgInvalidDate     = "Invalid date format. Use YYYY-MM-DD."
	msgInvalidSkip     = "Skip value must be non-negative"
	msgInvalidLimit    = "Limit must be between 1 and 1000"
	msgInternal        = "Internal server error"
	msgUnauthorized    = "Unauthorized"
	msgTherapistCaller = "Therapists cannot have therapists"
)

// ErrorResponse is the body of every non-2xx reply. Detail repeats Message
// for clients that read the detail key.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// DetailResponse mirrors the short acknowledgements clients already parse.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message, Detail: message})
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func uploadContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), uploadTimeout)
}

// Bodies may carry a base64 image, so the cap is generous.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	return json.NewDecoder(r.Body).Decode(dest)
}

// currentUser is only nil when a route was mounted outside RequireAuth.
func currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil
	}
	return u
}

// parsePagination reads skip/limit with the list defaults.
func parsePagination(r *http.Request) (services.Pagination, string) {
	page := services.Pagination{Skip: 0, Limit: services.DefaultLimit}
	q := r.URL.Query()
	if s := q.Get("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return page, msgInvalidSkip
		}
		page.Skip = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > services.MaxLimit {
			return page, msgInvalidLimit
		}
		page.Limit = n
	}
	return page, ""
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathDate(r *http.Request, name string) (models.Date, bool) {
	d, err := models.ParseDate(chi.URLParam(r, name))
	return d, err == nil
}

// writeServiceError maps data-layer errors onto status codes. Unknown errors
// are logged and reported as 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	var verr *utils.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, services.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "Role must be patient or therapist")
	case errors.Is(err, services.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
	case errors.Is(err, services.ErrInvalidGoogleToken):
		writeError(w, http.StatusUnauthorized, "Invalid Google Token")
	case errors.Is(err, services.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "Invalid image data")
	case errors.Is(err, services.ErrImageStoreDisabled):
		writeError(w, http.StatusServiceUnavailable, "Image storage is not configured")
	case errors.Is(err, services.ErrNotATherapist):
		writeError(w, http.StatusBadRequest, "Given ID is not a therapist ID")
	case errors.Is(err, services.ErrTherapistsCannotHaveTherapists):
		writeError(w, http.StatusBadRequest, msgTherapistCaller)
	case errors.Is(err, services.ErrAlreadyHasTherapist):
		writeError(w, http.StatusConflict, "Patient already has a therapist")
	case errors.Is(err, services.ErrNoTherapist):
		writeError(w, http.StatusBadRequest, "Patient does not have a therapist")
	case errors.Is(err, services.ErrPatientDataNotFound):
		writeError(w, http.StatusNotFound, "Patient data not found")
	case errors.Is(err, services.ErrTherapistDataNotFound):
		writeError(w, http.StatusNotFound, "Therapist data not found")
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrNoDepressionRisk):
		writeError(w, http.StatusNotFound, "No depression risk found")
	case errors.Is(err, services.ErrBatchInProgress):
		writeError(w, http.StatusConflict, "Depression risk batch already running")
	case errors.Is(err, services.ErrReportsDisabled):
		writeError(w, http.StatusServiceUnavailable, "Batch reports are not available")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		logger.L().Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

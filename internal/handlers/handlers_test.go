package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/middleware"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

var userColumnNames = []string{"id", "created_at", "email", "name", "hashed_password", "is_active", "role",
	"dob", "sex", "occupation", "image", "last_login", "streak"}

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := database.PostgresDB
	database.PostgresDB = db
	t.Cleanup(func() {
		database.PostgresDB = prev
		db.Close()
	})
	return mock
}

func userRow(id int64, email string, role models.Role, hash interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(userColumnNames).AddRow(
		id, time.Now(), email, "Test User", hash, true, string(role),
		nil, nil, nil, models.DefaultUserImage, nil, 0)
}

var (
	patientUser   = &models.User{ID: 7, Email: "pat@example.com", Role: models.RolePatient, IsActive: true}
	therapistUser = &models.User{ID: 9, Email: "dr@example.com", Role: models.RoleTherapist, IsActive: true}
)

// serve routes req through a one-route chi mux so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request, u *models.User) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	if u != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), u))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, body.Message, body.Detail)
	return body.Message
}

func TestSignupSigninAndProfile(t *testing.T) {
	mock := setupMockDB(t)
	services.ConfigureTokens("test-secret", 30*24*time.Hour)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, "x"))
	mock.ExpectExec(`INSERT INTO patient_data`).WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `{"email":"ana@example.com","name":"Ana","password":"correct horse"}`
	rec := serve(http.MethodPost, "/signup", Signup, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body)), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"detail":"User created successfully"}`, rec.Body.String())

	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).WithArgs("ana@example.com").
		WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, hash))

	form := url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}}
	req := httptest.NewRequest(http.MethodPost, "/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(http.MethodPost, "/signin", Signin, req, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok models.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 43200, tok.ExpiresIn)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).WithArgs("ana@example.com").
		WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, hash))

	router := chi.NewRouter()
	router.With(middleware.RequireAuth).Get("/users/me", GetMe)
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"ana@example.com"`)
	assert.NotContains(t, rec.Body.String(), "hashed_password")
	assert.NotContains(t, rec.Body.String(), hash)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupDuplicateEmail(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	body := `{"email":"ana@example.com","name":"Ana","password":"correct horse"}`
	rec := serve(http.MethodPost, "/signup", Signup, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body)), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", errorMessage(t, rec))
}

func TestSigninUnknownUser(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).WillReturnRows(sqlmock.NewRows(userColumnNames))

	req := httptest.NewRequest(http.MethodPost, "/signin", strings.NewReader(`{"username":"nobody@example.com","password":"whatever1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(http.MethodPost, "/signin", Signin, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect username or password", errorMessage(t, rec))
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestCheckEmail(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	rec := serve(http.MethodGet, "/users/check-email", CheckEmail,
		httptest.NewRequest(http.MethodGet, "/users/check-email?email=Ana@Example.com", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"detail":"True"}`, rec.Body.String())
}

func TestPaginationValidation(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"?skip=-1", msgInvalidSkip},
		{"?limit=0", msgInvalidLimit},
		{"?limit=1001", msgInvalidLimit},
		{"?limit=abc", msgInvalidLimit},
	}
	for _, tt := range tests {
		rec := serve(http.MethodGet, "/mood", ListMoodEntries, httptest.NewRequest(http.MethodGet, "/mood"+tt.query, nil), patientUser)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.query)
		assert.Equal(t, tt.want, errorMessage(t, rec), tt.query)
	}

	page, msg := parsePagination(httptest.NewRequest(http.MethodGet, "/mood", nil))
	assert.Empty(t, msg)
	assert.Equal(t, services.Pagination{Skip: 0, Limit: 100}, page)
}

func TestMoodByDateRejectsBadDate(t *testing.T) {
	rec := serve(http.MethodGet, "/mood/date/{date}", GetMoodEntryByDate,
		httptest.NewRequest(http.MethodGet, "/mood/date/2024-13-40", nil), patientUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidDate, errorMessage(t, rec))
}

func TestMoodDateRangeOrder(t *testing.T) {
	rec := serve(http.MethodGet, "/mood/date-range", GetMoodEntriesInRange,
		httptest.NewRequest(http.MethodGet, "/mood/date-range?start_date=2024-05-10&end_date=2024-05-01", nil), patientUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.MethodGet, "/mood/date-range", GetMoodEntriesInRange,
		httptest.NewRequest(http.MethodGet, "/mood/date-range?start_date=yesterday&end_date=2024-05-01", nil), patientUser)
	assert.Equal(t, msgInvalidDate, errorMessage(t, rec))
}

func TestMissingEntryIsNull(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`FROM journal_entries j`).WithArgs(7, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "title", "body", "image"}))

	rec := serve(http.MethodGet, "/journals/id/{id}", GetJournalEntryByID,
		httptest.NewRequest(http.MethodGet, "/journals/id/42", nil), patientUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestGuidedJournalRejectsUnknownDistortion(t *testing.T) {
	body := `{"date":"2024-05-01","body":{"step2_selected_distortions":["Wishful thinking"]}}`
	rec := serve(http.MethodPost, "/guided-journals", CreateGuidedJournalEntry,
		httptest.NewRequest(http.MethodPost, "/guided-journals", strings.NewReader(body)), patientUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnassignTherapistAsTherapist(t *testing.T) {
	rec := serve(http.MethodDelete, "/unassign-therapist", UnassignTherapist,
		httptest.NewRequest(http.MethodDelete, "/unassign-therapist", nil), therapistUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgTherapistCaller, errorMessage(t, rec))
}

func TestAssignTherapistResponse(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs(9).
		WillReturnRows(userRow(9, "dr@example.com", models.RoleTherapist, nil))
	mock.ExpectQuery(`UPDATE patient_data SET therapist_id`).WithArgs(7, 9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "therapist_id", "therapist_user_id", "has_onboarded", "severity", "therapist_note"}).
			AddRow(1, 7, 3, 9, false, "None", nil))

	rec := serve(http.MethodPost, "/assign-therapist/{therapist_id}", AssignTherapist,
		httptest.NewRequest(http.MethodPost, "/assign-therapist/9", nil), patientUser)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"detail":"Therapist assigned"}`, rec.Body.String())
}

func TestUpdatePatientDataAuthorization(t *testing.T) {
	rec := serve(http.MethodPatch, "/patient-data", UpdatePatientData,
		httptest.NewRequest(http.MethodPatch, "/patient-data", strings.NewReader(`{"severity":"Severe"}`)), patientUser)
	assert.Equal(t, http.StatusForbidden, rec.Code, "patients cannot set their own severity")

	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(8, 9).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	rec = serve(http.MethodPatch, "/patient-data", UpdatePatientData,
		httptest.NewRequest(http.MethodPatch, "/patient-data", strings.NewReader(`{"user_id":8,"therapist_note":"hi"}`)), therapistUser)
	assert.Equal(t, http.StatusForbidden, rec.Code, "not this therapist's patient")

	rec = serve(http.MethodPatch, "/patient-data", UpdatePatientData,
		httptest.NewRequest(http.MethodPatch, "/patient-data", strings.NewReader(`{"user_id":7,"severity":"Terrible"}`)), therapistUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPatientDataForbiddenToOtherPatients(t *testing.T) {
	rec := serve(http.MethodGet, "/patient-data/{id}", GetPatientData,
		httptest.NewRequest(http.MethodGet, "/patient-data/8", nil), patientUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBatchRequiresToken(t *testing.T) {
	InitRiskHandlers(nil, nil, "s3cret")
	t.Cleanup(func() { InitRiskHandlers(nil, nil, "") })

	rec := serve(http.MethodGet, "/batch", RunRiskBatch, httptest.NewRequest(http.MethodGet, "/batch?token=wrong", nil), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgUnauthorized, errorMessage(t, rec))

	rec = serve(http.MethodGet, "/batch/runs", ListRiskBatchRuns, httptest.NewRequest(http.MethodGet, "/batch/runs?token=s3cret", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBatchRejectsEmptyConfiguredToken(t *testing.T) {
	InitRiskHandlers(nil, nil, "")
	rec := serve(http.MethodGet, "/batch", RunRiskBatch, httptest.NewRequest(http.MethodGet, "/batch?token=", nil), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDepressionRiskAccess(t *testing.T) {
	rec := serve(http.MethodGet, "/user/depression-risk/{user_id}", GetDepressionRisk,
		httptest.NewRequest(http.MethodGet, "/user/depression-risk/7", nil), patientUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(7, 9).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM depression_risk_logs`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "value", "date"}))

	rec = serve(http.MethodGet, "/user/depression-risk/{user_id}", GetDepressionRisk,
		httptest.NewRequest(http.MethodGet, "/user/depression-risk/7", nil), therapistUser)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No depression risk found", errorMessage(t, rec))
}

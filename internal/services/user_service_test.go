package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
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

func TestSignupThenSigninIssuesToken(t *testing.T) {
	mock := setupMockDB(t)
	ConfigureTokens("test-secret", 30*24*time.Hour)
	ctx := context.Background()

	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("ana@example.com", "Ana", hash, "patient", nil, nil, nil, models.DefaultUserImage).
		WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, hash))
	mock.ExpectExec(`INSERT INTO patient_data \(user_id\) VALUES \(\$1\)`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := CreateUser(ctx, models.UserCreate{Email: "Ana@Example.com", Name: "Ana"}, &hash)
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, created.Role)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, hash))

	u, err := AuthenticateUser(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	token, err := IssueAccessToken(u)
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, 43200, token.ExpiresIn)

	claims, err := ParseAccessToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Subject)
	assert.Equal(t, int64(1), claims.ID)

	profile, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(profile), "hashed_password")
	assert.NotContains(t, string(profile), hash)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTherapistCreatesTherapistData(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(userRow(2, "dr@example.com", models.RoleTherapist, nil))
	mock.ExpectExec(`INSERT INTO therapist_data \(user_id\) VALUES \(\$1\)`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	u, err := CreateUser(context.Background(), models.UserCreate{Email: "dr@example.com", Name: "Dr", Role: models.RoleTherapist}, nil)
	require.NoError(t, err)
	assert.True(t, u.IsTherapist())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := CreateUser(context.Background(), models.UserCreate{Email: "ana@example.com", Name: "Ana"}, nil)
	assert.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	_, err := CreateUser(context.Background(), models.UserCreate{Email: "x@example.com", Role: "admin"}, nil)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAuthenticateUserFailures(t *testing.T) {
	mock := setupMockDB(t)
	ctx := context.Background()
	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users WHERE email`).WillReturnRows(sqlmock.NewRows(userColumnNames))
	_, err = AuthenticateUser(ctx, "nobody@example.com", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery(`FROM users WHERE email`).WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, hash))
	_, err = AuthenticateUser(ctx, "ana@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Google accounts have no password.
	mock.ExpectQuery(`FROM users WHERE email`).WillReturnRows(userRow(1, "ana@example.com", models.RolePatient, nil))
	_, err = AuthenticateUser(ctx, "ana@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	ConfigureTokens("test-secret", time.Hour)
	token, err := IssueAccessToken(&models.User{ID: 3, Email: "a@b.com"})
	require.NoError(t, err)

	_, err = ParseAccessToken(token.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	ConfigureTokens("another-secret", time.Hour)
	_, err = ParseAccessToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmailExists(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := EmailExists(context.Background(), " ANA@example.com ")
	require.NoError(t, err)
	assert.True(t, ok)
}

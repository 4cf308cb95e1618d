package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, created_at, email, name, hashed_password, is_active, role, dob, sex, occupation, image, last_login, streak`

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// userTargets returns Scan destinations in userColumns order.
func userTargets(u *models.User) []interface{} {
	return []interface{}{&u.ID, &u.CreatedAt, &u.Email, &u.Name, &u.HashedPassword, &u.IsActive, &u.Role,
		&u.Dob, &u.Sex, &u.Occupation, &u.Image, &u.LastLogin, &u.Streak}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(userTargets(&u)...); err != nil {
		return nil, err
	}
	return &u, nil
}

func getUser(ctx context.Context, q querier, where string, arg interface{}) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetUserByEmail looks a user up by normalized email.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return getUser(ctx, database.PostgresDB, "email = $1", utils.NormalizeEmail(email))
}

func GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return getUser(ctx, database.PostgresDB, "id = $1", id)
}

// EmailExists reports whether an account is registered under email.
func EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := database.PostgresDB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, utils.NormalizeEmail(email)).Scan(&exists)
	return exists, err
}

// CreateUser inserts the user and the profile extension matching its role in
// one transaction. hashedPassword is nil for Google accounts.
func CreateUser(ctx context.Context, in models.UserCreate, hashedPassword *string) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RolePatient
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	image := models.DefaultUserImage

	tx, err := database.PostgresDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx, `
		INSERT INTO users (email, name, hashed_password, role, dob, sex, occupation, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		utils.NormalizeEmail(in.Email), in.Name, hashedPassword, string(role), in.Dob, in.Sex, in.Occupation, image))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	switch role {
	case models.RoleTherapist:
		_, err = tx.ExecContext(ctx, `INSERT INTO therapist_data (user_id) VALUES ($1)`, u.ID)
	default:
		_, err = tx.ExecContext(ctx, `INSERT INTO patient_data (user_id) VALUES ($1)`, u.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert %s data: %w", role, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// AuthenticateUser returns the active user whose password matches.
// Unknown, inactive and password-less (Google) accounts all fail the same way.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	u, err := GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || u.HashedPassword == nil {
		return nil, ErrInvalidCredentials
	}
	ok, err := utils.VerifyPassword(password, *u.HashedPassword)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateUser applies the non-nil fields of upd.
func UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	u, err := scanUser(database.PostgresDB.QueryRowContext(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			dob = COALESCE($3, dob),
			sex = COALESCE($4, sex),
			occupation = COALESCE($5, occupation),
			is_active = COALESCE($6, is_active),
			image = COALESCE($7, image)
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.Name, upd.Dob, upd.Sex, upd.Occupation, upd.IsActive, upd.Image))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func statsCacheKey(userID int64) string {
	return CacheKey("stats", fmt.Sprint(userID))
}

// GetUserStats summarises a patient's journaling activity. Results are cached
// until the next entry write.
func GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	var cached models.UserStats
	if hit, _ := Cache.Get(ctx, statsCacheKey(userID), &cached); hit {
		return &cached, nil
	}

	var stats models.UserStats
	var lastLogin *models.Date
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM journal_entries je JOIN patient_data pd ON pd.id = je.patient_data_id WHERE pd.user_id = u.id),
			(SELECT COUNT(*) FROM guided_journal_entries ge JOIN patient_data pd ON pd.id = ge.patient_data_id WHERE pd.user_id = u.id),
			u.streak,
			u.last_login
		FROM users u WHERE u.id = $1`, userID).
		Scan(&stats.JournalCount, &stats.GuidedJournalCount, &stats.Streak, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin != nil {
		stats.LastLogin = lastLogin.String()
	}

	_ = Cache.Set(ctx, statsCacheKey(userID), stats)
	return &stats, nil
}

func invalidateStats(ctx context.Context, userID int64) {
	_ = Cache.Delete(ctx, statsCacheKey(userID))
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

// Pagination mirrors the skip/limit query parameters.
type Pagination struct {
	Skip  int
	Limit int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

func patientDataID(ctx context.Context, q querier, userID int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM patient_data WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPatientDataNotFound
	}
	return id, err
}

// --- mood ---

const moodColumns = `id, date, mood, eat, sleep`

func scanMood(row rowScanner) (*models.MoodEntry, error) {
	var e models.MoodEntry
	if err := row.Scan(&e.ID, &e.Date, &e.Mood, &e.Eat, &e.Sleep); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertMoodEntry writes the caller's mood for a date and advances the login
// streak. The user row is locked for the duration so concurrent writes for the
// same user serialize.
func UpsertMoodEntry(ctx context.Context, userID int64, in models.MoodEntryCreate) (*models.MoodEntry, error) {
	tx, err := database.PostgresDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var lastLogin *models.Date
	var streak int
	err = tx.QueryRowContext(ctx,
		`SELECT last_login, streak FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lastLogin, &streak)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	pdID, err := patientDataID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newStreak, newLastLogin := NextStreak(lastLogin, streak, in.Date)
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET streak = $2, last_login = $3 WHERE id = $1`, userID, newStreak, newLastLogin); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	entry, err := scanMood(tx.QueryRowContext(ctx, `
		INSERT INTO mood_entries (patient_data_id, date, mood, eat, sleep)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_data_id, date) DO UPDATE
		SET mood = EXCLUDED.mood, eat = EXCLUDED.eat, sleep = EXCLUDED.sleep
		RETURNING `+moodColumns,
		pdID, in.Date, in.Mood, in.Eat, in.Sleep))
	if err != nil {
		return nil, fmt.Errorf("upsert mood entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	invalidateStats(ctx, userID)
	return entry, nil
}

// GetMoodEntryByID returns nil when the entry does not exist or belongs to
// another patient.
func GetMoodEntryByID(ctx context.Context, userID, id int64) (*models.MoodEntry, error) {
	return oneMood(ctx, `SELECT `+prefixed("m", moodColumns)+` FROM mood_entries m
		JOIN patient_data pd ON pd.id = m.patient_data_id
		WHERE pd.user_id = $1 AND m.id = $2`, userID, id)
}

func GetMoodEntryByDate(ctx context.Context, userID int64, date models.Date) (*models.MoodEntry, error) {
	return oneMood(ctx, `SELECT `+prefixed("m", moodColumns)+` FROM mood_entries m
		JOIN patient_data pd ON pd.id = m.patient_data_id
		WHERE pd.user_id = $1 AND m.date = $2`, userID, date)
}

func oneMood(ctx context.Context, query string, args ...interface{}) (*models.MoodEntry, error) {
	e, err := scanMood(database.PostgresDB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// ListMoodEntries pages through the caller's entries, newest first.
func ListMoodEntries(ctx context.Context, userID int64, page Pagination) ([]models.MoodEntry, error) {
	return queryMood(ctx, `SELECT `+prefixed("m", moodColumns)+` FROM mood_entries m
		JOIN patient_data pd ON pd.id = m.patient_data_id
		WHERE pd.user_id = $1
		ORDER BY m.date DESC
		OFFSET $2 LIMIT $3`, userID, page.Skip, page.Limit)
}

// MoodEntriesInRange returns entries with start <= date <= end, oldest first.
func MoodEntriesInRange(ctx context.Context, userID int64, start, end models.Date) ([]models.MoodEntry, error) {
	return queryMood(ctx, `SELECT `+prefixed("m", moodColumns)+` FROM mood_entries m
		JOIN patient_data pd ON pd.id = m.patient_data_id
		WHERE pd.user_id = $1 AND m.date BETWEEN $2 AND $3
		ORDER BY m.date ASC`, userID, start, end)
}

func queryMood(ctx context.Context, query string, args ...interface{}) ([]models.MoodEntry, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.MoodEntry{}
	for rows.Next() {
		e, err := scanMood(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// --- journal ---

const journalColumns = `id, date, title, body, image`

func scanJournal(row rowScanner) (*models.JournalEntry, error) {
	var e models.JournalEntry
	if err := row.Scan(&e.ID, &e.Date, &e.Title, &e.Body, &e.Image); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertJournalEntry stores the optional image first, then writes the entry.
// An update without an image keeps the previously stored one.
func UpsertJournalEntry(ctx context.Context, userID int64, in models.JournalEntryCreate) (*models.JournalEntry, error) {
	pdID, err := patientDataID(ctx, database.PostgresDB, userID)
	if err != nil {
		return nil, err
	}

	var imageURL *string
	if in.Image != nil && *in.Image != "" {
		u, err := StoreImage(ctx, *in.Image, EntryImageName(userID, in.Date))
		if err != nil {
			return nil, err
		}
		imageURL = &u
	}

	entry, err := scanJournal(database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO journal_entries (patient_data_id, date, title, body, image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_data_id, date) DO UPDATE
		SET title = EXCLUDED.title,
			body = EXCLUDED.body,
			image = COALESCE(EXCLUDED.image, journal_entries.image)
		RETURNING `+journalColumns,
		pdID, in.Date, in.Title, in.Body, imageURL))
	if err != nil {
		return nil, fmt.Errorf("upsert journal entry: %w", err)
	}
	invalidateStats(ctx, userID)
	return entry, nil
}

func GetJournalEntryByID(ctx context.Context, userID, id int64) (*models.JournalEntry, error) {
	return oneJournal(ctx, `SELECT `+prefixed("j", journalColumns)+` FROM journal_entries j
		JOIN patient_data pd ON pd.id = j.patient_data_id
		WHERE pd.user_id = $1 AND j.id = $2`, userID, id)
}

func GetJournalEntryByDate(ctx context.Context, userID int64, date models.Date) (*models.JournalEntry, error) {
	return oneJournal(ctx, `SELECT `+prefixed("j", journalColumns)+` FROM journal_entries j
		JOIN patient_data pd ON pd.id = j.patient_data_id
		WHERE pd.user_id = $1 AND j.date = $2`, userID, date)
}

func oneJournal(ctx context.Context, query string, args ...interface{}) (*models.JournalEntry, error) {
	e, err := scanJournal(database.PostgresDB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// ListJournalEntries pages through the caller's journal, newest first.
func ListJournalEntries(ctx context.Context, userID int64, page Pagination) ([]models.JournalEntry, error) {
	return queryJournal(ctx, database.PostgresDB, `SELECT `+prefixed("j", journalColumns)+` FROM journal_entries j
		JOIN patient_data pd ON pd.id = j.patient_data_id
		WHERE pd.user_id = $1
		ORDER BY j.date DESC
		OFFSET $2 LIMIT $3`, userID, page.Skip, page.Limit)
}

// RecentJournalEntries returns the latest n entries of a patient in ascending
// date order, which is the order the model consumes them in.
func RecentJournalEntries(ctx context.Context, userID int64, n int) ([]models.JournalEntry, error) {
	return queryJournal(ctx, database.PostgresDB, `SELECT * FROM (
			SELECT `+prefixed("j", journalColumns)+` FROM journal_entries j
			JOIN patient_data pd ON pd.id = j.patient_data_id
			WHERE pd.user_id = $1
			ORDER BY j.date DESC
			LIMIT $2
		) recent ORDER BY date ASC`, userID, n)
}

func queryJournal(ctx context.Context, q querier, query string, args ...interface{}) ([]models.JournalEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// --- guided journal ---

const guidedColumns = `id, date, body`

func scanGuided(row rowScanner) (*models.GuidedJournalEntry, error) {
	var e models.GuidedJournalEntry
	if err := row.Scan(&e.ID, &e.Date, &e.Body); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertGuidedJournalEntry validates the distortion tags and writes the entry.
func UpsertGuidedJournalEntry(ctx context.Context, userID int64, in models.GuidedJournalEntryCreate) (*models.GuidedJournalEntry, error) {
	if err := in.Body.Validate(); err != nil {
		return nil, &utils.ValidationError{Field: "body", Message: err.Error()}
	}
	pdID, err := patientDataID(ctx, database.PostgresDB, userID)
	if err != nil {
		return nil, err
	}

	entry, err := scanGuided(database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO guided_journal_entries (patient_data_id, date, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_data_id, date) DO UPDATE SET body = EXCLUDED.body
		RETURNING `+guidedColumns,
		pdID, in.Date, in.Body))
	if err != nil {
		return nil, fmt.Errorf("upsert guided journal entry: %w", err)
	}
	invalidateStats(ctx, userID)
	return entry, nil
}

func GetGuidedJournalEntryByID(ctx context.Context, userID, id int64) (*models.GuidedJournalEntry, error) {
	return oneGuided(ctx, `SELECT `+prefixed("g", guidedColumns)+` FROM guided_journal_entries g
		JOIN patient_data pd ON pd.id = g.patient_data_id
		WHERE pd.user_id = $1 AND g.id = $2`, userID, id)
}

func GetGuidedJournalEntryByDate(ctx context.Context, userID int64, date models.Date) (*models.GuidedJournalEntry, error) {
	return oneGuided(ctx, `SELECT `+prefixed("g", guidedColumns)+` FROM guided_journal_entries g
		JOIN patient_data pd ON pd.id = g.patient_data_id
		WHERE pd.user_id = $1 AND g.date = $2`, userID, date)
}

func oneGuided(ctx context.Context, query string, args ...interface{}) (*models.GuidedJournalEntry, error) {
	e, err := scanGuided(database.PostgresDB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func ListGuidedJournalEntries(ctx context.Context, userID int64, page Pagination) ([]models.GuidedJournalEntry, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `SELECT `+prefixed("g", guidedColumns)+` FROM guided_journal_entries g
		JOIN patient_data pd ON pd.id = g.patient_data_id
		WHERE pd.user_id = $1
		ORDER BY g.date DESC
		OFFSET $2 LIMIT $3`, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.GuidedJournalEntry{}
	for rows.Next() {
		e, err := scanGuided(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

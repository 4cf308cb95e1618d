package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

const riskLogColumns = `id, user_id, value, date`

func scanRiskLog(row rowScanner) (*models.DepressionRiskLog, error) {
	var l models.DepressionRiskLog
	if err := row.Scan(&l.ID, &l.UserID, &l.Value, &l.Date); err != nil {
		return nil, err
	}
	return &l, nil
}

// UpsertDepressionRiskLog records the score for (user, date), replacing any
// earlier score for the same day.
func UpsertDepressionRiskLog(ctx context.Context, userID int64, value float64, date models.Date) (*models.DepressionRiskLog, error) {
	return scanRiskLog(database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO depression_risk_logs (user_id, value, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, date) DO UPDATE SET value = EXCLUDED.value
		RETURNING `+riskLogColumns, userID, value, date))
}

// GetDepressionRiskLogs returns a patient's history, newest first.
func GetDepressionRiskLogs(ctx context.Context, userID int64, page Pagination) ([]models.DepressionRiskLog, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT `+riskLogColumns+` FROM depression_risk_logs
		WHERE user_id = $1
		ORDER BY date DESC
		OFFSET $2 LIMIT $3`, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.DepressionRiskLog{}
	for rows.Next() {
		l, err := scanRiskLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func GetLatestDepressionRiskLog(ctx context.Context, userID int64) (*models.DepressionRiskLog, error) {
	l, err := scanRiskLog(database.PostgresDB.QueryRowContext(ctx, `
		SELECT `+riskLogColumns+` FROM depression_risk_logs
		WHERE user_id = $1
		ORDER BY date DESC
		LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDepressionRisk
	}
	return l, err
}

// PatientsWithJournals pages through user ids of patients that have written
// at least one journal entry, in id order. afterID is the last id of the
// previous page (0 for the first).
func PatientsWithJournals(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT pd.user_id FROM patient_data pd
		WHERE pd.user_id > $1
		  AND EXISTS (SELECT 1 FROM journal_entries je WHERE je.patient_data_id = pd.id)
		ORDER BY pd.user_id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL and bootstraps the schema.
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	logger.L().Info("✅ Connected to PostgreSQL")

	return InitPostgresTables()
}

// schemaStatements is applied in order on every start; each statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		hashed_password VARCHAR(255),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		role VARCHAR(20) NOT NULL DEFAULT 'patient' CHECK (role IN ('patient', 'therapist')),
		dob DATE,
		sex VARCHAR(50),
		occupation VARCHAR(255),
		image TEXT,
		last_login DATE,
		streak INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS social_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		provider VARCHAR(50) NOT NULL,
		provider_user_id VARCHAR(255) NOT NULL,
		access_token TEXT,
		refresh_token TEXT,
		expires_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS therapist_data (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		qualifications TEXT,
		expertise TEXT,
		bio TEXT,
		treatment_approach TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS patient_data (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		therapist_id BIGINT REFERENCES therapist_data(id) ON DELETE SET NULL,
		therapist_user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		has_onboarded BOOLEAN NOT NULL DEFAULT FALSE,
		severity VARCHAR(50) NOT NULL DEFAULT 'None',
		therapist_note TEXT
	)`,

	// Entry tables: one row per (patient, calendar date)
	`CREATE TABLE IF NOT EXISTS mood_entries (
		id BIGSERIAL PRIMARY KEY,
		patient_data_id BIGINT NOT NULL REFERENCES patient_data(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		mood SMALLINT NOT NULL,
		eat SMALLINT NOT NULL,
		sleep SMALLINT NOT NULL,
		UNIQUE(patient_data_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id BIGSERIAL PRIMARY KEY,
		patient_data_id BIGINT NOT NULL REFERENCES patient_data(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		image TEXT,
		UNIQUE(patient_data_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS guided_journal_entries (
		id BIGSERIAL PRIMARY KEY,
		patient_data_id BIGINT NOT NULL REFERENCES patient_data(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		body JSONB NOT NULL,
		UNIQUE(patient_data_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS depression_risk_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		value DOUBLE PRECISION NOT NULL,
		date DATE NOT NULL,
		UNIQUE(user_id, date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
	`CREATE INDEX IF NOT EXISTS idx_social_accounts_user_id ON social_accounts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_patient_data_therapist_id ON patient_data(therapist_id)`,
	`CREATE INDEX IF NOT EXISTS idx_mood_entries_date_desc ON mood_entries(date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_date_desc ON journal_entries(date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_guided_journal_entries_date_desc ON guided_journal_entries(date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_pair ON chat_messages(sender_id, recipient_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_depression_risk_logs_user_date ON depression_risk_logs(user_id, date DESC)`,
}

// InitPostgresTables creates all necessary tables and indexes if they don't exist.
func InitPostgresTables() error {
	for _, query := range schemaStatements {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	logger.L().Info("✅ PostgreSQL tables initialized", "statements", len(schemaStatements))
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}

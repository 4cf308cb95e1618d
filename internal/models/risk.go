package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Severity is the therapist-facing risk classification of a patient.
type Severity string

const (
	SeverityNone             Severity = "None"
	SeverityMild             Severity = "Mild"
	SeverityModerate         Severity = "Moderate"
	SeverityModeratelySevere Severity = "Moderately Severe"
	SeveritySevere           Severity = "Severe"
)

// SeverityForScore maps a depression probability onto a severity label.
func SeverityForScore(p float64) Severity {
	switch {
	case p >= 0.8:
		return SeveritySevere
	case p >= 0.6:
		return SeverityModeratelySevere
	case p >= 0.4:
		return SeverityModerate
	case p >= 0.2:
		return SeverityMild
	default:
		return SeverityNone
	}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityMild, SeverityModerate, SeverityModeratelySevere, SeveritySevere:
		return true
	}
	return false
}

// DepressionRiskLog holds one model score per (user, date).
type DepressionRiskLog struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"user_id"`
	Value  float64 `json:"value"`
	Date   Date    `json:"date"`
}

// RiskScore is the per-patient outcome of a batch run.
type RiskScore struct {
	Risk     float64  `bson:"risk" json:"risk"`
	Severity Severity `bson:"severity" json:"severity"`
}

// RiskBatchRun is the report of one scoring pass, stored in MongoDB.
type RiskBatchRun struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RunID      string               `bson:"run_id" json:"run_id"`
	Trigger    string               `bson:"trigger" json:"trigger"` // "http" or "schedule"
	StartedAt  time.Time            `bson:"started_at" json:"started_at"`
	FinishedAt time.Time            `bson:"finished_at" json:"finished_at"`
	Scored     int                  `bson:"scored" json:"scored"`
	Failed     int                  `bson:"failed" json:"failed"`
	Details    map[string]RiskScore `bson:"details" json:"details"`
	Errors     map[string]string    `bson:"errors,omitempty" json:"errors,omitempty"`
}

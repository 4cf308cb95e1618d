package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
	"github.com/AnshRaj112/moodjournal-backend/pkg/observability"
)

// ErrBatchInProgress is returned when a scoring pass is already running.
var ErrBatchInProgress = errors.New("depression risk batch already running")

const defaultPatientPageSize = 100

// RiskScorer runs depression-risk scoring passes over all patients.
type RiskScorer struct {
	Model           ModelClient
	BackendEndpoint string // prefix for relative image paths
	WindowSize      int
	PageSize        int
	Reports         RiskReportStore // optional

	mu  sync.Mutex
	now func() time.Time
}

func NewRiskScorer(model ModelClient, backendEndpoint string, windowSize int, reports RiskReportStore) *RiskScorer {
	return &RiskScorer{
		Model:           model,
		BackendEndpoint: strings.TrimRight(backendEndpoint, "/"),
		WindowSize:      windowSize,
		PageSize:        defaultPatientPageSize,
		Reports:         reports,
		now:             time.Now,
	}
}

// Run scores every patient with at least one journal entry. A patient whose
// scoring fails is recorded in the run's errors and skipped.
func (s *RiskScorer) Run(ctx context.Context, trigger string) (*models.RiskBatchRun, error) {
	if !s.mu.TryLock() {
		return nil, ErrBatchInProgress
	}
	defer s.mu.Unlock()

	ctx, span := observability.Tracer("risk").Start(ctx, "risk.batch")
	defer span.End()

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	run := &models.RiskBatchRun{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now().UTC(),
		Details:   map[string]models.RiskScore{},
		Errors:    map[string]string{},
	}
	today := models.NewDate(run.StartedAt)
	log := logger.L().With("run_id", run.RunID, "trigger", trigger)

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultPatientPageSize
	}

	var afterID int64
	for {
		ids, err := PatientsWithJournals(ctx, afterID, pageSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list patients")
			return nil, err
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			score, err := s.scorePatient(ctx, id, today)
			key := strconv.FormatInt(id, 10)
			if err != nil {
				run.Failed++
				run.Errors[key] = err.Error()
				metrics.RecordRiskScore("failed")
				log.Warn("depression risk scoring failed", "user_id", id, "error", err)
				continue
			}
			run.Scored++
			run.Details[key] = *score
			metrics.RecordRiskScore("scored")
		}
		if len(ids) < pageSize {
			break
		}
		afterID = ids[len(ids)-1]
	}

	run.FinishedAt = now().UTC()
	metrics.RecordRiskBatch(trigger, run.FinishedAt.Sub(run.StartedAt))
	span.SetAttributes(attribute.Int("risk.scored", run.Scored), attribute.Int("risk.failed", run.Failed))
	log.Info("depression risk batch finished", "scored", run.Scored, "failed", run.Failed)

	if s.Reports != nil {
		if err := s.Reports.SaveBatchRun(ctx, run); err != nil {
			log.Warn("failed to store batch report", "error", err)
		}
	}
	return run, nil
}

func (s *RiskScorer) scorePatient(ctx context.Context, userID int64, today models.Date) (*models.RiskScore, error) {
	ctx, span := observability.Tracer("risk").Start(ctx, "risk.score_patient")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	entries, err := RecentJournalEntries(ctx, userID, s.WindowSize)
	if err != nil {
		return nil, err
	}
	out, err := s.Model.Check(ctx, s.buildInputs(entries))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p := out.Probas[0]
	if _, err := UpsertDepressionRiskLog(ctx, userID, p, today); err != nil {
		return nil, err
	}
	severity := models.SeverityForScore(p)
	if err := SetSeverity(ctx, userID, severity); err != nil {
		return nil, err
	}
	return &models.RiskScore{Risk: p, Severity: severity}, nil
}

func (s *RiskScorer) buildInputs(entries []models.JournalEntry) []ModelInput {
	inputs := make([]ModelInput, 0, len(entries))
	for _, e := range entries {
		text := e.Title + "\n" + e.Body
		in := ModelInput{Text: &text, Timestamp: e.Date.String()}
		if e.Image != nil && *e.Image != "" {
			img := *e.Image
			if strings.HasPrefix(img, "/") {
				img = s.BackendEndpoint + img
			}
			in.Image = &img
		}
		inputs = append(inputs, in)
	}
	return inputs
}

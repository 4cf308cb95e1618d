package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

var (
	riskScorer  *services.RiskScorer
	riskReports services.RiskReportStore
	batchToken  string
)

// InitRiskHandlers wires the scorer behind /batch. reports may be nil when
// MongoDB is not configured.
func InitRiskHandlers(scorer *services.RiskScorer, reports services.RiskReportStore, token string) {
	riskScorer = scorer
	riskReports = reports
	batchToken = token
}

// BatchResponse keeps the acknowledgement shape batch callers already parse.
type BatchResponse struct {
	Detail  string                      `json:"detail"`
	Details map[string]models.RiskScore `json:"details"`
	RunID   string                      `json:"run_id"`
	Scored  int                         `json:"scored"`
	Failed  int                         `json:"failed"`
	Errors  map[string]string           `json:"errors,omitempty"`
}

func validBatchToken(r *http.Request) bool {
	got := r.URL.Query().Get("token")
	return batchToken != "" && subtle.ConstantTimeCompare([]byte(got), []byte(batchToken)) == 1
}

// RunRiskBatch scores every patient with journal entries. Guarded by the
// shared BATCH_TOKEN query parameter.
func RunRiskBatch(w http.ResponseWriter, r *http.Request) {
	if !validBatchToken(r) {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return
	}
	if riskScorer == nil {
		writeError(w, http.StatusServiceUnavailable, "Risk scoring is not configured")
		return
	}

	// A dropped client connection must not abort a half-finished pass.
	run, err := riskScorer.Run(context.WithoutCancel(r.Context()), "http")
	if err != nil {
		writeServiceError(w, err, "risk batch")
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{
		Detail:  "Depression risk updated",
		Details: run.Details,
		RunID:   run.RunID,
		Scored:  run.Scored,
		Failed:  run.Failed,
		Errors:  run.Errors,
	})
}

// ListRiskBatchRuns returns the most recent batch reports.
func ListRiskBatchRuns(w http.ResponseWriter, r *http.Request) {
	if !validBatchToken(r) {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return
	}
	if riskReports == nil {
		writeServiceError(w, services.ErrReportsDisabled, "list batch runs")
		return
	}
	var limit int64
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, msgInvalidLimit)
			return
		}
		limit = n
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	runs, err := riskReports.ListBatchRuns(ctx, limit)
	if err != nil {
		writeServiceError(w, err, "list batch runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetDepressionRisks lists a patient's risk history for their therapist.
func GetDepressionRisks(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	patientID, ok := requireTherapistOf(w, r, u)
	if !ok {
		return
	}
	page, msg := parsePagination(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	logs, err := services.GetDepressionRiskLogs(ctx, patientID, page)
	if err != nil {
		writeServiceError(w, err, "get depression risks")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GetDepressionRisk returns a patient's latest risk score for their therapist.
func GetDepressionRisk(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	patientID, ok := requireTherapistOf(w, r, u)
	if !ok {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	log, err := services.GetLatestDepressionRiskLog(ctx, patientID)
	if err != nil {
		writeServiceError(w, err, "get depression risk")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// requireTherapistOf resolves {user_id} and checks that u is that patient's
// therapist, writing 403 otherwise.
func requireTherapistOf(w http.ResponseWriter, r *http.Request, u *models.User) (int64, bool) {
	if !u.IsTherapist() {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return 0, false
	}
	patientID, ok := pathID(r, "user_id")
	if !ok {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return 0, false
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	isPatient, err := services.IsPatientOfTherapist(ctx, patientID, u.ID)
	if err != nil {
		writeServiceError(w, err, "check patient")
		return 0, false
	}
	if !isPatient {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return 0, false
	}
	return patientID, true
}

package handlers

import (
	"net/http"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

// AssignTherapist links the calling patient to a therapist. A patient keeps
// their therapist until they unassign.
func AssignTherapist(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	therapistID, ok := pathID(r, "therapist_id")
	if !ok {
		writeServiceError(w, services.ErrNotATherapist, "assign therapist")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := services.AssignTherapist(ctx, u, therapistID); err != nil {
		writeServiceError(w, err, "assign therapist")
		return
	}
	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Therapist assigned"})
}

func UnassignTherapist(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	if u.IsTherapist() {
		writeError(w, http.StatusBadRequest, msgTherapistCaller)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := services.UnassignTherapist(ctx, u); err != nil {
		writeServiceError(w, err, "unassign therapist")
		return
	}
	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Therapist unassigned"})
}

// GetTherapist returns the caller's therapist, or null when none is assigned.
func GetTherapist(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	if u.IsTherapist() {
		writeError(w, http.StatusBadRequest, msgTherapistCaller)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	t, err := services.GetTherapistForPatient(ctx, u.ID)
	if err != nil {
		writeServiceError(w, err, "get therapist")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetPatients lists the calling therapist's patients with their records.
func GetPatients(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	if !u.IsTherapist() {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	patients, err := services.GetPatientsByTherapist(ctx, u.ID)
	if err != nil {
		writeServiceError(w, err, "get patients")
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// GetPatientData is readable by the patient and by their therapist.
func GetPatientData(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	patientID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if !canReadPatient(w, r, u, patientID) {
		return
	}
	p, err := services.GetPatientWithData(ctx, patientID)
	if err != nil {
		writeServiceError(w, err, "get patient data")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePatientData lets a patient set has_onboarded on their own record and
// lets their therapist set severity and the therapist note.
func UpdatePatientData(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	var upd models.PatientDataUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if upd.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	if upd.Severity != nil && !upd.Severity.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid severity")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if u.IsPatient() {
		if upd.UserID == 0 {
			upd.UserID = u.ID
		}
		if upd.UserID != u.ID || upd.Severity != nil || upd.TherapistNote != nil {
			writeError(w, http.StatusForbidden, msgUnauthorized)
			return
		}
	} else {
		if upd.HasOnboarded != nil {
			writeError(w, http.StatusForbidden, msgUnauthorized)
			return
		}
		ok, err := services.IsPatientOfTherapist(ctx, upd.UserID, u.ID)
		if err != nil {
			writeServiceError(w, err, "check patient")
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, msgUnauthorized)
			return
		}
	}

	pd, err := services.UpdatePatientData(ctx, upd)
	if err != nil {
		writeServiceError(w, err, "update patient data")
		return
	}
	writeJSON(w, http.StatusOK, pd)
}

func ListTherapists(w http.ResponseWriter, r *http.Request) {
	page, msg := parsePagination(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	therapists, err := services.ListTherapists(ctx, page)
	if err != nil {
		writeServiceError(w, err, "list therapists")
		return
	}
	writeJSON(w, http.StatusOK, therapists)
}

func GetTherapistData(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	t, err := services.GetTherapistWithData(ctx, therapistID)
	if err != nil {
		writeServiceError(w, err, "get therapist data")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTherapistData edits the calling therapist's own profile.
func UpdateTherapistData(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	if !u.IsTherapist() {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return
	}
	var upd models.TherapistDataUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	td, err := services.UpdateTherapistData(ctx, u.ID, upd)
	if err != nil {
		writeServiceError(w, err, "update therapist data")
		return
	}
	writeJSON(w, http.StatusOK, td)
}

// canReadPatient writes 403 and returns false unless u is the patient or the
// patient's therapist.
func canReadPatient(w http.ResponseWriter, r *http.Request, u *models.User, patientID int64) bool {
	if u.ID == patientID {
		return true
	}
	if !u.IsTherapist() {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return false
	}
	ok, err := services.IsPatientOfTherapist(r.Context(), patientID, u.ID)
	if err != nil {
		writeServiceError(w, err, "check patient")
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, msgUnauthorized)
		return false
	}
	return true
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

const (
	patientDataColumns   = `id, user_id, therapist_id, therapist_user_id, has_onboarded, severity, therapist_note`
	therapistDataColumns = `id, user_id, qualifications, expertise, bio, treatment_approach`
)

func patientDataTargets(pd *models.PatientData) []interface{} {
	return []interface{}{&pd.ID, &pd.UserID, &pd.TherapistID, &pd.TherapistUserID, &pd.HasOnboarded, &pd.Severity, &pd.TherapistNote}
}

func therapistDataTargets(td *models.TherapistData) []interface{} {
	return []interface{}{&td.ID, &td.UserID, &td.Qualifications, &td.Expertise, &td.Bio, &td.TreatmentApproach}
}

func scanPatientData(row rowScanner) (*models.PatientData, error) {
	var pd models.PatientData
	if err := row.Scan(patientDataTargets(&pd)...); err != nil {
		return nil, err
	}
	return &pd, nil
}

// AssignTherapist links the patient to a therapist. A patient can have only
// one therapist at a time; the guard lives in the UPDATE itself.
func AssignTherapist(ctx context.Context, patient *models.User, therapistUserID int64) (*models.PatientData, error) {
	therapist, err := GetUserByID(ctx, therapistUserID)
	if errors.Is(err, ErrUserNotFound) || (err == nil && !therapist.IsTherapist()) {
		return nil, ErrNotATherapist
	}
	if err != nil {
		return nil, err
	}
	if patient.IsTherapist() {
		return nil, ErrTherapistsCannotHaveTherapists
	}

	pd, err := scanPatientData(database.PostgresDB.QueryRowContext(ctx, `
		UPDATE patient_data SET therapist_id = td.id, therapist_user_id = td.user_id
		FROM therapist_data td
		WHERE td.user_id = $2 AND patient_data.user_id = $1 AND patient_data.therapist_id IS NULL
		RETURNING `+prefixed("patient_data", patientDataColumns),
		patient.ID, therapistUserID))
	if err == nil {
		return pd, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assign therapist: %w", err)
	}

	current, err := GetPatientData(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	if current.TherapistID != nil {
		return nil, ErrAlreadyHasTherapist
	}
	return nil, ErrTherapistDataNotFound
}

// UnassignTherapist clears the patient's therapist.
func UnassignTherapist(ctx context.Context, patient *models.User) (*models.PatientData, error) {
	if patient.IsTherapist() {
		return nil, ErrTherapistsCannotHaveTherapists
	}
	pd, err := scanPatientData(database.PostgresDB.QueryRowContext(ctx, `
		UPDATE patient_data SET therapist_id = NULL, therapist_user_id = NULL
		WHERE user_id = $1 AND therapist_id IS NOT NULL
		RETURNING `+patientDataColumns, patient.ID))
	if err == nil {
		return pd, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unassign therapist: %w", err)
	}
	if _, err := GetPatientData(ctx, patient.ID); err != nil {
		return nil, err
	}
	return nil, ErrNoTherapist
}

// GetPatientData returns the extension record of a patient user.
func GetPatientData(ctx context.Context, userID int64) (*models.PatientData, error) {
	pd, err := scanPatientData(database.PostgresDB.QueryRowContext(ctx,
		`SELECT `+patientDataColumns+` FROM patient_data WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientDataNotFound
	}
	return pd, err
}

// GetTherapistForPatient returns nil when no therapist is assigned.
func GetTherapistForPatient(ctx context.Context, patientUserID int64) (*models.User, error) {
	u, err := scanUser(database.PostgresDB.QueryRowContext(ctx, `
		SELECT `+prefixed("u", userColumns)+` FROM users u
		JOIN patient_data pd ON pd.therapist_user_id = u.id
		WHERE pd.user_id = $1`, patientUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetPatientsByTherapist lists the therapist's patients with their extension
// records.
func GetPatientsByTherapist(ctx context.Context, therapistUserID int64) ([]models.UserWithPatientData, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT `+prefixed("u", userColumns)+`, `+prefixed("pd", patientDataColumns)+`
		FROM users u
		JOIN patient_data pd ON pd.user_id = u.id
		WHERE pd.therapist_user_id = $1
		ORDER BY u.id`, therapistUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []models.UserWithPatientData{}
	for rows.Next() {
		var p models.UserWithPatientData
		p.PatientData = &models.PatientData{}
		targets := append(userTargets(&p.User), patientDataTargets(p.PatientData)...)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// PatientUserIDs returns the user ids of the therapist's patients.
func PatientUserIDs(ctx context.Context, therapistUserID int64) ([]int64, error) {
	rows, err := database.PostgresDB.QueryContext(ctx,
		`SELECT user_id FROM patient_data WHERE therapist_user_id = $1`, therapistUserID)
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

// IsPatientOfTherapist reports whether the patient is assigned to the therapist.
func IsPatientOfTherapist(ctx context.Context, patientUserID, therapistUserID int64) (bool, error) {
	var ok bool
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM patient_data WHERE user_id = $1 AND therapist_user_id = $2)`,
		patientUserID, therapistUserID).Scan(&ok)
	return ok, err
}

// GetPatientWithData returns a patient user joined with its extension record.
func GetPatientWithData(ctx context.Context, userID int64) (*models.UserWithPatientData, error) {
	var p models.UserWithPatientData
	p.PatientData = &models.PatientData{}
	targets := append(userTargets(&p.User), patientDataTargets(p.PatientData)...)
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT `+prefixed("u", userColumns)+`, `+prefixed("pd", patientDataColumns)+`
		FROM users u
		JOIN patient_data pd ON pd.user_id = u.id
		WHERE u.id = $1`, userID).Scan(targets...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePatientData applies the non-nil fields of upd.
func UpdatePatientData(ctx context.Context, upd models.PatientDataUpdate) (*models.PatientData, error) {
	pd, err := scanPatientData(database.PostgresDB.QueryRowContext(ctx, `
		UPDATE patient_data SET
			has_onboarded = COALESCE($2, has_onboarded),
			severity = COALESCE($3, severity),
			therapist_note = COALESCE($4, therapist_note)
		WHERE user_id = $1
		RETURNING `+patientDataColumns,
		upd.UserID, upd.HasOnboarded, upd.Severity, upd.TherapistNote))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientDataNotFound
	}
	return pd, err
}

// SetSeverity overwrites the severity label of a patient.
func SetSeverity(ctx context.Context, userID int64, severity models.Severity) error {
	res, err := database.PostgresDB.ExecContext(ctx,
		`UPDATE patient_data SET severity = $2 WHERE user_id = $1`, userID, string(severity))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatientDataNotFound
	}
	return nil
}

// ListTherapists pages through therapist accounts.
func ListTherapists(ctx context.Context, page Pagination) ([]models.User, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = 'therapist'
		ORDER BY id
		OFFSET $1 LIMIT $2`, page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	therapists := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		therapists = append(therapists, *u)
	}
	return therapists, rows.Err()
}

// GetTherapistWithData returns a therapist user joined with its profile.
func GetTherapistWithData(ctx context.Context, userID int64) (*models.UserWithTherapistData, error) {
	var t models.UserWithTherapistData
	t.TherapistData = &models.TherapistData{}
	targets := append(userTargets(&t.User), therapistDataTargets(t.TherapistData)...)
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT `+prefixed("u", userColumns)+`, `+prefixed("td", therapistDataColumns)+`
		FROM users u
		JOIN therapist_data td ON td.user_id = u.id
		WHERE u.id = $1`, userID).Scan(targets...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTherapistData applies the non-nil fields of upd to the therapist's profile.
func UpdateTherapistData(ctx context.Context, therapistUserID int64, upd models.TherapistDataUpdate) (*models.TherapistData, error) {
	var td models.TherapistData
	err := database.PostgresDB.QueryRowContext(ctx, `
		UPDATE therapist_data SET
			qualifications = COALESCE($2, qualifications),
			expertise = COALESCE($3, expertise),
			bio = COALESCE($4, bio),
			treatment_approach = COALESCE($5, treatment_approach)
		WHERE user_id = $1
		RETURNING `+therapistDataColumns,
		therapistUserID, upd.Qualifications, upd.Expertise, upd.Bio, upd.TreatmentApproach).
		Scan(therapistDataTargets(&td)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTherapistDataNotFound
	}
	if err != nil {
		return nil, err
	}
	return &td, nil
}

package models

// PatientData extends a patient user with therapist assignment and the
// therapist-facing severity label.
type PatientData struct {
	ID              int64    `json:"id"`
	UserID          int64    `json:"user_id"`
	TherapistID     *int64   `json:"therapist_id"`
	TherapistUserID *int64   `json:"therapist_user_id"`
	HasOnboarded    bool     `json:"has_onboarded"`
	Severity        Severity `json:"severity"`
	TherapistNote   *string  `json:"therapist_note"`
}

// PatientDataUpdate is a partial update keyed by the patient's user id.
type PatientDataUpdate struct {
	UserID        int64     `json:"user_id"`
	HasOnboarded  *bool     `json:"has_onboarded"`
	Severity      *Severity `json:"severity"`
	TherapistNote *string   `json:"therapist_note"`
}

// Empty reports whether the update would change nothing.
func (u PatientDataUpdate) Empty() bool {
	return u.HasOnboarded == nil && u.Severity == nil && u.TherapistNote == nil
}

type TherapistData struct {
	ID                int64   `json:"id"`
	UserID            int64   `json:"user_id"`
	Qualifications    *string `json:"qualifications"`
	Expertise         *string `json:"expertise"`
	Bio               *string `json:"bio"`
	TreatmentApproach *string `json:"treatment_approach"`
}

// TherapistDataUpdate replaces the provided profile fields of the caller's record.
type TherapistDataUpdate struct {
	Qualifications    *string `json:"qualifications"`
	Expertise         *string `json:"expertise"`
	Bio               *string `json:"bio"`
	TreatmentApproach *string `json:"treatment_approach"`
}

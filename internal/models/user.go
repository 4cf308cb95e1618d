package models

import "time"

type Role string

const (
	RolePatient   Role = "patient"
	RoleTherapist Role = "therapist"
)

// Valid reports whether r is one of the two supported roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleTherapist
}

// DefaultUserImage is assigned to every new account.
const DefaultUserImage = "/images/user.jpg"

type User struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"-"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	HashedPassword *string   `json:"-"` // nil for Google accounts
	IsActive       bool      `json:"is_active"`
	Role           Role      `json:"role"`
	Dob            *Date     `json:"dob"`
	Sex            *string   `json:"sex"`
	Occupation     *string   `json:"occupation"`
	Image          *string   `json:"image"`
	LastLogin      *Date     `json:"last_login"`
	Streak         int       `json:"streak"`
}

func (u *User) IsTherapist() bool { return u.Role == RoleTherapist }
func (u *User) IsPatient() bool   { return u.Role == RolePatient }

// UserCreate is the signup payload.
type UserCreate struct {
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Password   string  `json:"password"`
	Dob        *Date   `json:"dob"`
	Sex        *string `json:"sex"`
	Occupation *string `json:"occupation"`
	Role       Role    `json:"role"`
	Image      *string `json:"image"`
}

// UserUpdate carries a partial profile update; nil fields are left unchanged.
// Image is a base64 payload on the way in and a stored URL after upload.
type UserUpdate struct {
	Name       *string `json:"name"`
	Dob        *Date   `json:"dob"`
	Sex        *string `json:"sex"`
	Occupation *string `json:"occupation"`
	IsActive   *bool   `json:"is_active"`
	Image      *string `json:"image"`
}

// UserStats is the dashboard summary for a patient.
type UserStats struct {
	JournalCount       int    `json:"journal_count"`
	GuidedJournalCount int    `json:"guided_journal_count"`
	Streak             int    `json:"streak"`
	LastLogin          string `json:"last_login"`
}

// UserWithPatientData is a patient profile joined with its extension record.
type UserWithPatientData struct {
	User
	PatientData *PatientData `json:"patient_data"`
}

// UserWithTherapistData is a therapist profile joined with its extension record.
type UserWithTherapistData struct {
	User
	TherapistData *TherapistData `json:"therapist_data"`
}

// Token is the signin response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // minutes
}

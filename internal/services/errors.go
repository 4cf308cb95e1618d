package services

import "errors"

// Sentinel errors returned by the data layer. Handlers map them to status
// codes and client-facing messages.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrInvalidGoogleToken = errors.New("invalid google token")
	ErrInvalidRole        = errors.New("role must be patient or therapist")

	ErrPatientDataNotFound   = errors.New("patient data not found")
	ErrTherapistDataNotFound = errors.New("therapist data not found")

	ErrNotATherapist                  = errors.New("given id is not a therapist id")
	ErrTherapistsCannotHaveTherapists = errors.New("therapists cannot have therapists")
	ErrAlreadyHasTherapist            = errors.New("patient already has a therapist")
	ErrNoTherapist                    = errors.New("patient does not have a therapist")

	ErrInvalidImage       = errors.New("invalid image data")
	ErrImageStoreDisabled = errors.New("image storage not configured")

	ErrNoDepressionRisk = errors.New("no depression risk found")
	ErrModelUnavailable = errors.New("model endpoint returned an error")
	ErrReportsDisabled  = errors.New("batch reports require mongodb")
)

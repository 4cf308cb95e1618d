package handlers

import (
	"net/http"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
)

// GetMe returns the caller's profile. The password hash is never serialized.
func GetMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe applies a partial profile update. A base64 image replaces the
// profile picture.
func UpdateMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	var upd models.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx, cancel := uploadContext(r)
	defer cancel()

	if upd.Image != nil && *upd.Image != "" {
		url, err := services.StoreImage(ctx, *upd.Image, services.ProfileImageName(u.ID))
		if err != nil {
			writeServiceError(w, err, "store profile image")
			return
		}
		upd.Image = &url
	} else {
		upd.Image = nil
	}

	updated, err := services.UpdateUser(ctx, u.ID, upd)
	if err != nil {
		writeServiceError(w, err, "update user")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func GetStats(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := services.GetUserStats(ctx, u.ID)
	if err != nil {
		writeServiceError(w, err, "user stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CreateSocialAccounts links external provider accounts to the caller.
func CreateSocialAccounts(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	var accounts []models.SocialAccountCreate
	if err := decodeJSON(w, r, &accounts); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	for _, a := range accounts {
		if a.Provider == "" || a.ProviderUserID == "" {
			writeError(w, http.StatusBadRequest, "provider and provider_user_id are required")
			return
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	created, err := services.CreateSocialAccounts(ctx, u.ID, accounts)
	if err != nil {
		writeServiceError(w, err, "create social accounts")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

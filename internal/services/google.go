package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

// GoogleProfile is the subset of the user-info response we rely on.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

var (
	// GoogleTokenInfoURL is suffixed with the access token.
	GoogleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo?alt=json&access_token="
	googleHTTPClient   = &http.Client{Timeout: 10 * time.Second}
)

// VerifyGoogleToken exchanges an OAuth access token for the user profile.
func VerifyGoogleToken(ctx context.Context, token string) (*GoogleProfile, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidGoogleToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, GoogleTokenInfoURL+url.QueryEscape(token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := googleHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidGoogleToken
	}
	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode google user info: %w", err)
	}
	if profile.Email == "" {
		return nil, ErrInvalidGoogleToken
	}
	return &profile, nil
}

// SignInWithGoogle verifies the token and returns the matching user, creating
// a patient account on first sign-in.
func SignInWithGoogle(ctx context.Context, token string) (*models.User, error) {
	profile, err := VerifyGoogleToken(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := GetUserByEmail(ctx, profile.Email)
	if err == nil {
		return u, nil
	}
	if err != ErrUserNotFound {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = profile.Email
	}
	u, err = CreateUser(ctx, models.UserCreate{
		Email: profile.Email,
		Name:  name,
		Role:  models.RolePatient,
	}, nil)
	if err == ErrEmailTaken {
		// Lost a race with a concurrent first sign-in.
		return GetUserByEmail(ctx, profile.Email)
	}
	if err != nil {
		return nil, err
	}
	logger.L().Info("created google account", "user_id", u.ID)
	return u, nil
}

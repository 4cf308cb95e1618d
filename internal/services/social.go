package services

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

// sealToken encrypts an OAuth token when an encryption key is configured and
// stores it as-is otherwise.
func sealToken(token *string) (*string, error) {
	if token == nil || *token == "" || !utils.EncryptionEnabled() {
		return token, nil
	}
	sealed, err := utils.Encrypt(*token)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

// CreateSocialAccounts links external provider accounts to the user in a
// single transaction.
func CreateSocialAccounts(ctx context.Context, userID int64, accounts []models.SocialAccountCreate) ([]models.SocialAccount, error) {
	tx, err := database.PostgresDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created := make([]models.SocialAccount, 0, len(accounts))
	for _, a := range accounts {
		access, err := sealToken(a.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt access token: %w", err)
		}
		refresh, err := sealToken(a.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}

		acc := models.SocialAccount{UserID: userID, Provider: a.Provider, ProviderUserID: a.ProviderUserID}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO social_accounts (user_id, provider, provider_user_id, access_token, refresh_token, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			userID, a.Provider, a.ProviderUserID, access, refresh, a.ExpiresAt).Scan(&acc.ID)
		if err != nil {
			return nil, fmt.Errorf("insert social account: %w", err)
		}
		created = append(created, acc)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

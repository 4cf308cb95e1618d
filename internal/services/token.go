package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

const TokenType = "bearer"

var (
	tokenMu     sync.RWMutex
	tokenSecret []byte
	tokenTTL    = 30 * 24 * time.Hour
)

// AccessClaims identifies the caller by email (sub) and user id.
type AccessClaims struct {
	ID int64 `json:"id"`
	jwt.RegisteredClaims
}

// ConfigureTokens sets the HS256 signing secret and token lifetime.
func ConfigureTokens(secret string, ttl time.Duration) {
	tokenMu.Lock()
	defer tokenMu.Unlock()
	tokenSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func tokenSettings() ([]byte, time.Duration) {
	tokenMu.RLock()
	defer tokenMu.RUnlock()
	return tokenSecret, tokenTTL
}

// IssueAccessToken signs a bearer token for u.
func IssueAccessToken(u *models.User) (*models.Token, error) {
	secret, ttl := tokenSettings()
	if len(secret) == 0 {
		return nil, errors.New("token secret not configured")
	}
	now := time.Now()
	claims := AccessClaims{
		ID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, err
	}
	return &models.Token{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresIn:   int(ttl / time.Minute),
	}, nil
}

// ParseAccessToken validates signature and expiry and returns the claims.
func ParseAccessToken(raw string) (*AccessClaims, error) {
	secret, _ := tokenSettings()
	if len(secret) == 0 || raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserFromToken resolves a bearer token to an active user.
func UserFromToken(ctx context.Context, raw string) (*models.User, error) {
	claims, err := ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}
	u, err := GetUserByEmail(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidToken
	}
	return u, nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenManager issues and checks access tokens and produces opaque refresh tokens.
type TokenManager interface {
	IssueAccessToken(userID uuid.UUID) (string, error)
	VerifyAccessToken(token string) (uuid.UUID, error)
	IssueRefreshToken() (string, error)
	HashRefreshToken(token string) string
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// Session is a freshly issued credential pair.
type Session struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

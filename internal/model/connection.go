package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectionStatusActive marks a freshly linked connection.
const ConnectionStatusActive = "active"

// ConnectionRecord is sent to the integrations backend when an account is linked.
type ConnectionRecord struct {
	UserID            uuid.UUID     `json:"user_id"`
	Provider          OAuthProvider `json:"provider"`
	ProviderAccountID string        `json:"provider_account_id"`
	Status            string        `json:"status"`
	Scopes            []string      `json:"scopes"`
	AccessToken       string        `json:"access_token"`
	RefreshToken      string        `json:"refresh_token,omitempty"`
	AccessTokenExpiry *time.Time    `json:"access_token_expiry"`
	IsActive          bool          `json:"is_active"`
}

// ConnectionCreator registers linked accounts with the integrations backend.
type ConnectionCreator interface {
	CreateConnection(ctx context.Context, record ConnectionRecord) error
}

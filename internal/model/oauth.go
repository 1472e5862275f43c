package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OAuthStateTTL bounds the life of an authorization round trip.
const OAuthStateTTL = 5 * time.Minute

// OAuthProvider names the flow a state record belongs to.
type OAuthProvider string

const (
	// OAuthProviderGoogle is Google sign-in.
	OAuthProviderGoogle OAuthProvider = "google"
	// OAuthProviderGmail is Gmail account linking.
	OAuthProviderGmail OAuthProvider = "gmail"
)

// OAuthStateStore persists single-use OAuth state records.
type OAuthStateStore interface {
	Create(ctx context.Context, state OAuthState) error
	Consume(ctx context.Context, stateToken string, now time.Time) (OAuthState, error)
}

// OAuthStateSweeper removes expired state records.
type OAuthStateSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// OAuthState is a pending authorization round trip.
type OAuthState struct {
	StateToken  string        `json:"state_token"`
	Provider    OAuthProvider `json:"provider"`
	UserID      *uuid.UUID    `json:"user_id,omitempty"`
	RedirectURL string        `json:"redirect_url"`
	ExpiresAt   time.Time     `json:"expires_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// AuthorizationOptions selects scopes and token lifetime for an authorization URL.
type AuthorizationOptions struct {
	ExtendedScopes bool
	Offline        bool
}

// OAuthCredentials are tokens returned by a code exchange.
type OAuthCredentials struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       *time.Time
	Scopes       []string
}

// OAuthIdentity is the verified content of an identity token.
type OAuthIdentity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// OAuthClient talks to the identity provider.
type OAuthClient interface {
	AllowedRedirectURI(redirectURI string) (string, error)
	AuthorizationURL(redirectURI string, opts AuthorizationOptions) (authURL string, state string, err error)
	Exchange(ctx context.Context, code, redirectURI string) (OAuthCredentials, error)
	VerifyIdentityToken(ctx context.Context, rawIDToken string) (OAuthIdentity, error)
}

// OAuthCallback carries the query of a provider redirect.
type OAuthCallback struct {
	Code        string
	State       string
	Error       string
	CallbackURI string
}

// LinkStart is returned when an account link flow begins.
type LinkStart struct {
	UserID   uuid.UUID     `json:"user_id"`
	AuthURL  string        `json:"auth_url"`
	Provider OAuthProvider `json:"provider"`
}

// RedirectPolicy cleans post-login redirect targets.
type RedirectPolicy interface {
	Sanitize(raw string) string
	Validate(stored string) string
}

// TokenCipher encrypts provider tokens handed to the integrations backend.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
}

package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoginMethod tells how a user authenticates.
type LoginMethod string

const (
	// LoginMethodCredentials is email and password.
	LoginMethodCredentials LoginMethod = "credentials"
	// LoginMethodGoogleOAuth is Google sign-in.
	LoginMethodGoogleOAuth LoginMethod = "google_oauth"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter UserFilter) ([]User, error)
}

// SessionStore keeps the single active refresh session of each user on the user row.
type SessionStore interface {
	RotateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetBySessionHash(ctx context.Context, tokenHash string, now time.Time) (User, error)
	ClearSession(ctx context.Context, userID uuid.UUID) error
}

// User represents a gateway account.
type User struct {
	ID                    uuid.UUID
	Email                 string
	FirstName             string
	LastName              string
	LoginMethod           LoginMethod
	HashedPassword        *string
	OAuthProviderID       *string
	IsActive              bool
	HashedRefreshToken    *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasPassword reports whether credentials login is possible for the user.
func (u User) HasPassword() bool {
	return u.HashedPassword != nil && *u.HashedPassword != ""
}

// Identity is the resolved caller of a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// UserFilter narrows user listings.
type UserFilter struct {
	Skip          int
	Limit         int
	Search        string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	SortBy        string
	SortOrder     string
}

// SignupParams contains data for credentials registration.
type SignupParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserUpdate contains optional profile changes.
type UserUpdate struct {
	FirstName       *string
	LastName        *string
	Email           *string
	IsActive        *bool
	CurrentPassword *string
	NewPassword     *string
}

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

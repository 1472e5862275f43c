package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("not found")

// Credential codec errors.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenWrongType = errors.New("token has wrong type")
)

// Session and login errors.
var (
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrMissingCredential  = errors.New("missing refresh token")
	ErrInvalidSession     = errors.New("invalid or expired refresh token")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("user account is disabled")
	ErrForbidden          = errors.New("operation not permitted for this user")
)

// OAuth flow errors.
var (
	ErrRedirectNotAllowed       = errors.New("redirect uri is not allowed")
	ErrAuthorizationDenied      = errors.New("authorization failed")
	ErrMissingAuthorizationCode = errors.New("missing authorization code")
	ErrInvalidOAuthState        = errors.New("invalid or expired state token")
	ErrOrphanedOAuthState       = errors.New("oauth state is missing associated user")
	ErrAuthFailed               = errors.New("authentication with provider failed")
	ErrUnknownAuth              = errors.New("unexpected error during authentication")
	ErrInvalidIdentityToken     = errors.New("invalid identity token")
	ErrMissingIdentityFields    = errors.New("missing user info from identity token")
	ErrLoginMethodConflict      = errors.New("email already registered with another login method")
	ErrProviderAccountMismatch  = errors.New("email registered with different google account")
)

// User management errors.
var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrCredentialsRequired = errors.New("only credentials users can change email or password")
	ErrIncorrectPassword   = errors.New("current password is incorrect")
	ErrUserInactive        = errors.New("user not found or inactive")
)

// ErrConnectionNotOwned is returned when a referenced connection is missing or
// belongs to someone else.
var ErrConnectionNotOwned = errors.New("connection not found or does not belong to user")

// Backend and aggregation errors.
var (
	ErrGatewayTimeout   = errors.New("backend timeout")
	ErrBadGateway       = errors.New("backend unavailable")
	ErrAggregateTimeout = errors.New("aggregate timeout")
)

// UpstreamError is a backend's own failure relayed with its status and body.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Error from %s: %s", e.Service, string(e.Body))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// Auth drives credentials login and the Google login and Gmail link flows.
type Auth struct {
	users       model.UserStore
	states      model.OAuthStateStore
	oauth       model.OAuthClient
	redirects   model.RedirectPolicy
	cipher      model.TokenCipher
	connections model.ConnectionCreator
	hasher      model.PasswordHasher
	tokens      *TokenService
	logger      *logger.Logger
	now         func() time.Time
}

func NewAuth(
	users model.UserStore,
	states model.OAuthStateStore,
	oauth model.OAuthClient,
	redirects model.RedirectPolicy,
	cipher model.TokenCipher,
	connections model.ConnectionCreator,
	hasher model.PasswordHasher,
	tokens *TokenService,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		users:       users,
		states:      states,
		oauth:       oauth,
		redirects:   redirects,
		cipher:      cipher,
		connections: connections,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

// LoginCredentials checks an email and password and opens a session.
func (a *Auth) LoginCredentials(ctx context.Context, email, password string) (model.User, model.Session, error) {
	a.logger.Debug("Auth service: credentials login",
		"email", email)

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.User{}, model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !user.HasPassword() || !a.hasher.Verify(*user.HashedPassword, password) {
		a.logger.Info("Auth service: invalid credentials",
			"email", email)
		return model.User{}, model.Session{}, model.ErrInvalidCredentials
	}

	if !user.IsActive {
		return model.User{}, model.Session{}, model.ErrAccountDisabled
	}

	session, err := a.tokens.Issue(ctx, user.ID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}

	a.logger.Info("Auth service: credentials login completed",
		"user_id", user.ID)

	return user, session, nil
}

// StartGoogleLogin returns the provider URL for a login round trip and stores
// its state without an owner.
func (a *Auth) StartGoogleLogin(ctx context.Context, callbackURI, redirectTarget string) (string, error) {
	authURL, state, err := a.oauth.AuthorizationURL(callbackURI, model.AuthorizationOptions{})
	if err != nil {
		a.logger.Error("Auth service: failed to build authorization url",
			"callback_uri", callbackURI,
			"error", err.Error())
		return "", err
	}

	if err := a.saveState(ctx, state, model.OAuthProviderGoogle, nil, redirectTarget); err != nil {
		return "", err
	}

	return authURL, nil
}

// CompleteGoogleLogin finishes a login round trip. The state is consumed
// before the code is exchanged, so a replayed callback always fails.
func (a *Auth) CompleteGoogleLogin(ctx context.Context, cb model.OAuthCallback) (string, model.Session, error) {
	state, err := a.consumeState(ctx, cb, model.OAuthProviderGoogle)
	if err != nil {
		return "", model.Session{}, err
	}

	identity, _, err := a.exchange(ctx, cb)
	if err != nil {
		return "", model.Session{}, err
	}
	if identity.Subject == "" || identity.Email == "" {
		return "", model.Session{}, model.ErrMissingIdentityFields
	}

	user, err := a.oauthUser(ctx, identity)
	if err != nil {
		return "", model.Session{}, err
	}

	session, err := a.tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", model.Session{}, err
	}

	a.logger.Info("Auth service: google login completed",
		"user_id", user.ID)

	return a.redirects.Validate(state.RedirectURL), session, nil
}

// StartGmailLink begins linking a Gmail account to the caller. Extended scopes
// and offline access are requested so the provider returns a refresh token.
func (a *Auth) StartGmailLink(ctx context.Context, identity model.Identity, callbackURI, redirectTarget string) (model.LinkStart, error) {
	authURL, state, err := a.oauth.AuthorizationURL(callbackURI, model.AuthorizationOptions{
		ExtendedScopes: true,
		Offline:        true,
	})
	if err != nil {
		a.logger.Error("Auth service: failed to build link authorization url",
			"user_id", identity.UserID,
			"error", err.Error())
		return model.LinkStart{}, err
	}

	owner := identity.UserID
	if err := a.saveState(ctx, state, model.OAuthProviderGmail, &owner, redirectTarget); err != nil {
		return model.LinkStart{}, err
	}

	return model.LinkStart{
		UserID:   identity.UserID,
		AuthURL:  authURL,
		Provider: model.OAuthProviderGmail,
	}, nil
}

// CompleteGmailLink finishes a link round trip and registers the connection
// with the integrations backend. Provider tokens leave the gateway encrypted.
func (a *Auth) CompleteGmailLink(ctx context.Context, cb model.OAuthCallback) (string, error) {
	state, err := a.consumeState(ctx, cb, model.OAuthProviderGmail)
	if err != nil {
		return "", err
	}
	if state.UserID == nil || *state.UserID == uuid.Nil {
		return "", model.ErrOrphanedOAuthState
	}

	identity, creds, err := a.exchange(ctx, cb)
	if err != nil {
		return "", err
	}
	if identity.Email == "" {
		return "", model.ErrMissingIdentityFields
	}

	accessToken, err := a.cipher.Encrypt(creds.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}
	var refreshToken string
	if creds.RefreshToken != "" {
		refreshToken, err = a.cipher.Encrypt(creds.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	scopes := creds.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	record := model.ConnectionRecord{
		UserID:            *state.UserID,
		Provider:          state.Provider,
		ProviderAccountID: identity.Email,
		Status:            model.ConnectionStatusActive,
		Scopes:            scopes,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		AccessTokenExpiry: creds.Expiry,
		IsActive:          true,
	}
	if err := a.connections.CreateConnection(ctx, record); err != nil {
		a.logger.Error("Auth service: failed to create connection",
			"user_id", *state.UserID,
			"error", err.Error())
		return "", err
	}

	a.logger.Info("Auth service: gmail account linked",
		"user_id", *state.UserID)

	return a.redirects.Validate(state.RedirectURL), nil
}

func (a *Auth) saveState(ctx context.Context, token string, provider model.OAuthProvider, owner *uuid.UUID, redirectTarget string) error {
	now := a.now().UTC()
	state := model.OAuthState{
		StateToken:  token,
		Provider:    provider,
		UserID:      owner,
		RedirectURL: a.redirects.Sanitize(redirectTarget),
		ExpiresAt:   now.Add(model.OAuthStateTTL),
		CreatedAt:   now,
	}

	if err := a.states.Create(ctx, state); err != nil {
		a.logger.Error("Auth service: failed to store oauth state",
			"provider", provider,
			"error", err.Error())
		return fmt.Errorf("failed to store oauth state: %w", err)
	}

	return nil
}

func (a *Auth) consumeState(ctx context.Context, cb model.OAuthCallback, provider model.OAuthProvider) (model.OAuthState, error) {
	if cb.Error != "" {
		return model.OAuthState{}, fmt.Errorf("%w: %s", model.ErrAuthorizationDenied, cb.Error)
	}
	if cb.Code == "" {
		return model.OAuthState{}, model.ErrMissingAuthorizationCode
	}
	if cb.State == "" {
		return model.OAuthState{}, model.ErrInvalidOAuthState
	}

	state, err := a.states.Consume(ctx, cb.State, a.now())
	if err != nil {
		if errors.Is(err, model.ErrInvalidOAuthState) {
			a.logger.Info("Auth service: oauth state rejected",
				"provider", provider)
			return model.OAuthState{}, err
		}
		return model.OAuthState{}, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	if state.Provider != provider {
		a.logger.Warn("Auth service: oauth state used on wrong callback",
			"expected", provider,
			"got", state.Provider)
		return model.OAuthState{}, model.ErrInvalidOAuthState
	}

	return state, nil
}

func (a *Auth) exchange(ctx context.Context, cb model.OAuthCallback) (model.OAuthIdentity, model.OAuthCredentials, error) {
	callbackURI, err := a.oauth.AllowedRedirectURI(cb.CallbackURI)
	if err != nil {
		return model.OAuthIdentity{}, model.OAuthCredentials{}, err
	}

	creds, err := a.oauth.Exchange(ctx, cb.Code, callbackURI)
	if err != nil {
		a.logger.Warn("Auth service: code exchange failed",
			"error", err.Error())
		return model.OAuthIdentity{}, model.OAuthCredentials{}, err
	}

	identity, err := a.oauth.VerifyIdentityToken(ctx, creds.IDToken)
	if err != nil {
		a.logger.Warn("Auth service: identity token rejected",
			"error", err.Error())
		return model.OAuthIdentity{}, model.OAuthCredentials{}, err
	}

	return identity, creds, nil
}

// oauthUser returns the account bound to the identity, creating it on first login.
func (a *Auth) oauthUser(ctx context.Context, identity model.OAuthIdentity) (model.User, error) {
	user, err := a.users.GetByEmail(ctx, identity.Email)
	if err == nil {
		return a.checkOAuthUser(user, identity)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	now := a.now().UTC()
	subject := identity.Subject
	created, err := a.users.Create(ctx, model.User{
		ID:              uuid.New(),
		Email:           identity.Email,
		FirstName:       identity.GivenName,
		LastName:        identity.FamilyName,
		LoginMethod:     model.LoginMethodGoogleOAuth,
		OAuthProviderID: &subject,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Is(err, model.ErrEmailTaken) {
		// Lost a race with a concurrent first login for the same email.
		user, err = a.users.GetByEmail(ctx, identity.Email)
		if err != nil {
			return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
		}
		return a.checkOAuthUser(user, identity)
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create oauth user",
			"email", identity.Email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: created user from google login",
		"user_id", created.ID)

	return created, nil
}

func (a *Auth) checkOAuthUser(user model.User, identity model.OAuthIdentity) (model.User, error) {
	if user.LoginMethod != model.LoginMethodGoogleOAuth {
		return model.User{}, model.ErrLoginMethodConflict
	}
	if user.OAuthProviderID == nil || *user.OAuthProviderID != identity.Subject {
		return model.User{}, model.ErrProviderAccountMismatch
	}
	if !user.IsActive {
		return model.User{}, model.ErrAccountDisabled
	}
	return user, nil
}

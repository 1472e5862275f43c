package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/composite-gateway/internal/cipher"
	"github.com/dtroode/composite-gateway/internal/mocks"
	"github.com/dtroode/composite-gateway/internal/model"
	"github.com/dtroode/composite-gateway/internal/password"
	"github.com/dtroode/composite-gateway/internal/redirect"
	"github.com/dtroode/composite-gateway/internal/testutil"
)

const (
	loginCallback = "http://localhost:8080/oauth/callback/google/login"
	gmailCallback = "http://localhost:8080/oauth/callback/google/gmail"
	frontend      = "http://localhost:3000"
)

type authFixture struct {
	svc         *Auth
	store       *memoryStore
	states      *memoryStates
	oauth       *mocks.OAuthClient
	connections *mocks.ConnectionCreator
	cipher      *cipher.TokenCipher
	hasher      *password.Bcrypt
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := newMemoryStore()
	states := newMemoryStates()
	oauthClient := mocks.NewOAuthClient(t)
	connections := mocks.NewConnectionCreator(t)
	hasher := password.NewBcrypt(4)

	tc, err := cipher.New(make([]byte, 32))
	require.NoError(t, err)

	redirects := redirect.NewSanitizer([]string{frontend, "https://app.example.com"}, frontend)
	tokens := newRealTokenService(t, store)

	svc := NewAuth(store, states, oauthClient, redirects, tc, connections, hasher, tokens, testutil.MakeNoopLogger())
	svc.now = func() time.Time { return fixedNow }

	return &authFixture{
		svc:         svc,
		store:       store,
		states:      states,
		oauth:       oauthClient,
		connections: connections,
		cipher:      tc,
		hasher:      hasher,
	}
}

func (f *authFixture) credentialsUser(t *testing.T, email, plain string, active bool) model.User {
	t.Helper()
	hash, err := f.hasher.Hash(plain)
	require.NoError(t, err)
	u := model.User{
		ID:             uuid.New(),
		Email:          email,
		LoginMethod:    model.LoginMethodCredentials,
		HashedPassword: &hash,
		IsActive:       active,
	}
	f.store.put(u)
	return u
}

func (f *authFixture) googleUser(email, subject string) model.User {
	u := model.User{
		ID:              uuid.New(),
		Email:           email,
		LoginMethod:     model.LoginMethodGoogleOAuth,
		OAuthProviderID: &subject,
		IsActive:        true,
	}
	f.store.put(u)
	return u
}

func (f *authFixture) expectExchange(code, callback string, creds model.OAuthCredentials, identity model.OAuthIdentity) {
	f.oauth.On("AllowedRedirectURI", callback).Return(callback, nil).Once()
	f.oauth.On("Exchange", mock.Anything, code, callback).Return(creds, nil).Once()
	f.oauth.On("VerifyIdentityToken", mock.Anything, creds.IDToken).Return(identity, nil).Once()
}

func TestAuth_LoginCredentials(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.credentialsUser(t, "ada@example.com", "correct horse", true)
	f.credentialsUser(t, "off@example.com", "correct horse", false)
	f.googleUser("g@example.com", "g-1")

	t.Run("success", func(t *testing.T) {
		got, session, err := f.svc.LoginCredentials(ctx, "ada@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)

		stored, err := f.store.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.HashedRefreshToken)
	})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "mutated last character", email: "ada@example.com", password: "correct horsf", wantErr: model.ErrInvalidCredentials},
		{name: "mutated first character", email: "ada@example.com", password: "Correct horse", wantErr: model.ErrInvalidCredentials},
		{name: "dropped character", email: "ada@example.com", password: "correct hors", wantErr: model.ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@example.com", password: "correct horse", wantErr: model.ErrInvalidCredentials},
		{name: "oauth account has no password", email: "g@example.com", password: "", wantErr: model.ErrInvalidCredentials},
		{name: "disabled account", email: "off@example.com", password: "correct horse", wantErr: model.ErrAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.LoginCredentials(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuth_StartGoogleLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores ownerless state with sanitized redirect", func(t *testing.T) {
		f := newAuthFixture(t)
		f.oauth.On("AuthorizationURL", loginCallback, model.AuthorizationOptions{}).
			Return("https://accounts.example.com/auth?state=s1", "s1", nil).Once()

		authURL, err := f.svc.StartGoogleLogin(ctx, loginCallback, "https://app.example.com/home/?tab=1#x")
		require.NoError(t, err)
		assert.Equal(t, "https://accounts.example.com/auth?state=s1", authURL)

		state, ok := f.states.get("s1")
		require.True(t, ok)
		assert.Equal(t, model.OAuthProviderGoogle, state.Provider)
		assert.Nil(t, state.UserID)
		assert.Equal(t, "https://app.example.com/home", state.RedirectURL)
		assert.Equal(t, fixedNow.Add(5*time.Minute), state.ExpiresAt)
	})

	t.Run("disallowed redirect target falls back", func(t *testing.T) {
		f := newAuthFixture(t)
		f.oauth.On("AuthorizationURL", loginCallback, model.AuthorizationOptions{}).
			Return("https://accounts.example.com/auth", "s2", nil).Once()

		_, err := f.svc.StartGoogleLogin(ctx, loginCallback, "https://evil.example.com/steal")
		require.NoError(t, err)

		state, ok := f.states.get("s2")
		require.True(t, ok)
		assert.Equal(t, frontend, state.RedirectURL)
	})

	t.Run("callback not allowed", func(t *testing.T) {
		f := newAuthFixture(t)
		f.oauth.On("AuthorizationURL", "http://evil/cb", model.AuthorizationOptions{}).
			Return("", "", model.ErrRedirectNotAllowed).Once()

		_, err := f.svc.StartGoogleLogin(ctx, "http://evil/cb", "")
		assert.ErrorIs(t, err, model.ErrRedirectNotAllowed)
	})
}

func TestAuth_GoogleLogin_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	f.oauth.On("AuthorizationURL", loginCallback, model.AuthorizationOptions{}).
		Return("https://accounts.example.com/auth?state=st", "st", nil).Once()
	_, err := f.svc.StartGoogleLogin(ctx, loginCallback, frontend+"/dashboard")
	require.NoError(t, err)

	creds := model.OAuthCredentials{AccessToken: "ya29", IDToken: "id-token"}
	f.expectExchange("code-1", loginCallback, creds, model.OAuthIdentity{
		Subject: "g123", Email: "a@b.com", GivenName: "Ada", FamilyName: "Lovelace",
	})

	cb := model.OAuthCallback{Code: "code-1", State: "st", CallbackURI: loginCallback}
	target, session, err := f.svc.CompleteGoogleLogin(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, frontend+"/dashboard", target)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	user, err := f.store.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Equal(t, model.LoginMethodGoogleOAuth, user.LoginMethod)
	require.NotNil(t, user.OAuthProviderID)
	assert.Equal(t, "g123", *user.OAuthProviderID)
	assert.Nil(t, user.HashedPassword)
	assert.Equal(t, "Ada", user.FirstName)

	_, _, err = f.svc.CompleteGoogleLogin(ctx, cb)
	assert.ErrorIs(t, err, model.ErrInvalidOAuthState)
}

func TestAuth_GoogleLogin_ExistingUserReused(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	existing := f.googleUser("a@b.com", "g123")

	require.NoError(t, f.states.Create(ctx, model.OAuthState{
		StateToken: "st", Provider: model.OAuthProviderGoogle, ExpiresAt: fixedNow.Add(time.Minute),
	}))
	creds := model.OAuthCredentials{IDToken: "id"}
	f.expectExchange("c", loginCallback, creds, model.OAuthIdentity{Subject: "g123", Email: "a@b.com"})

	target, _, err := f.svc.CompleteGoogleLogin(ctx, model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback})
	require.NoError(t, err)
	assert.Equal(t, frontend, target)

	users, err := f.store.List(ctx, model.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	stored, err := f.store.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.HashedRefreshToken)
}

func TestAuth_CompleteGoogleLogin_Errors(t *testing.T) {
	ctx := context.Background()
	validState := model.OAuthState{StateToken: "st", Provider: model.OAuthProviderGoogle, ExpiresAt: fixedNow.Add(time.Minute)}

	tests := []struct {
		name    string
		cb      model.OAuthCallback
		setup   func(*testing.T, *authFixture)
		wantErr error
	}{
		{
			name:    "provider reported error",
			cb:      model.OAuthCallback{Error: "access_denied", State: "st"},
			setup:   func(*testing.T, *authFixture) {},
			wantErr: model.ErrAuthorizationDenied,
		},
		{
			name:    "missing code",
			cb:      model.OAuthCallback{State: "st"},
			setup:   func(*testing.T, *authFixture) {},
			wantErr: model.ErrMissingAuthorizationCode,
		},
		{
			name:    "unknown state",
			cb:      model.OAuthCallback{Code: "c", State: "nope", CallbackURI: loginCallback},
			setup:   func(*testing.T, *authFixture) {},
			wantErr: model.ErrInvalidOAuthState,
		},
		{
			name: "expired state",
			cb:   model.OAuthCallback{Code: "c", State: "old", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, model.OAuthState{
					StateToken: "old", Provider: model.OAuthProviderGoogle, ExpiresAt: fixedNow,
				}))
			},
			wantErr: model.ErrInvalidOAuthState,
		},
		{
			name: "link state on login callback",
			cb:   model.OAuthCallback{Code: "c", State: "link", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				owner := uuid.New()
				require.NoError(t, f.states.Create(ctx, model.OAuthState{
					StateToken: "link", Provider: model.OAuthProviderGmail, UserID: &owner, ExpiresAt: fixedNow.Add(time.Minute),
				}))
			},
			wantErr: model.ErrInvalidOAuthState,
		},
		{
			name: "callback uri not allowed",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: "http://evil/cb"},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.oauth.On("AllowedRedirectURI", "http://evil/cb").Return("", model.ErrRedirectNotAllowed).Once()
			},
			wantErr: model.ErrRedirectNotAllowed,
		},
		{
			name: "provider rejects code",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.oauth.On("AllowedRedirectURI", loginCallback).Return(loginCallback, nil).Once()
				f.oauth.On("Exchange", mock.Anything, "c", loginCallback).Return(model.OAuthCredentials{}, model.ErrAuthFailed).Once()
			},
			wantErr: model.ErrAuthFailed,
		},
		{
			name: "invalid identity token",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.oauth.On("AllowedRedirectURI", loginCallback).Return(loginCallback, nil).Once()
				f.oauth.On("Exchange", mock.Anything, "c", loginCallback).Return(model.OAuthCredentials{IDToken: "bad"}, nil).Once()
				f.oauth.On("VerifyIdentityToken", mock.Anything, "bad").Return(model.OAuthIdentity{}, model.ErrInvalidIdentityToken).Once()
			},
			wantErr: model.ErrInvalidIdentityToken,
		},
		{
			name: "missing subject",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.expectExchange("c", loginCallback, model.OAuthCredentials{IDToken: "id"}, model.OAuthIdentity{Email: "a@b.com"})
			},
			wantErr: model.ErrMissingIdentityFields,
		},
		{
			name: "missing email",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.expectExchange("c", loginCallback, model.OAuthCredentials{IDToken: "id"}, model.OAuthIdentity{Subject: "g1"})
			},
			wantErr: model.ErrMissingIdentityFields,
		},
		{
			name: "email registered with credentials",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.credentialsUser(t, "a@b.com", "pw", true)
				f.expectExchange("c", loginCallback, model.OAuthCredentials{IDToken: "id"}, model.OAuthIdentity{Subject: "g1", Email: "a@b.com"})
			},
			wantErr: model.ErrLoginMethodConflict,
		},
		{
			name: "email bound to other google account",
			cb:   model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback},
			setup: func(t *testing.T, f *authFixture) {
				require.NoError(t, f.states.Create(ctx, validState))
				f.googleUser("a@b.com", "g-original")
				f.expectExchange("c", loginCallback, model.OAuthCredentials{IDToken: "id"}, model.OAuthIdentity{Subject: "g-other", Email: "a@b.com"})
			},
			wantErr: model.ErrProviderAccountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setup(t, f)

			_, _, err := f.svc.CompleteGoogleLogin(ctx, tt.cb)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuth_CompleteGoogleLogin_StateConsumedOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.states.Create(ctx, model.OAuthState{
		StateToken: "st", Provider: model.OAuthProviderGoogle, ExpiresAt: fixedNow.Add(time.Minute),
	}))
	f.oauth.On("AllowedRedirectURI", loginCallback).Return(loginCallback, nil).Once()
	f.oauth.On("Exchange", mock.Anything, "c", loginCallback).Return(model.OAuthCredentials{}, model.ErrAuthFailed).Once()

	cb := model.OAuthCallback{Code: "c", State: "st", CallbackURI: loginCallback}
	_, _, err := f.svc.CompleteGoogleLogin(ctx, cb)
	require.ErrorIs(t, err, model.ErrAuthFailed)

	_, ok := f.states.get("st")
	assert.False(t, ok)

	_, _, err = f.svc.CompleteGoogleLogin(ctx, cb)
	assert.ErrorIs(t, err, model.ErrInvalidOAuthState)
}

func TestAuth_StartGmailLink(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	identity := model.Identity{UserID: uuid.New(), Email: "a@b.com"}

	f.oauth.On("AuthorizationURL", gmailCallback, model.AuthorizationOptions{ExtendedScopes: true, Offline: true}).
		Return("https://accounts.example.com/auth?access_type=offline", "ls", nil).Once()

	start, err := f.svc.StartGmailLink(ctx, identity, gmailCallback, "")
	require.NoError(t, err)
	assert.Equal(t, model.LinkStart{
		UserID:   identity.UserID,
		AuthURL:  "https://accounts.example.com/auth?access_type=offline",
		Provider: model.OAuthProviderGmail,
	}, start)

	state, ok := f.states.get("ls")
	require.True(t, ok)
	require.NotNil(t, state.UserID)
	assert.Equal(t, identity.UserID, *state.UserID)
	assert.Equal(t, model.OAuthProviderGmail, state.Provider)
	assert.Equal(t, frontend, state.RedirectURL)
}

func TestAuth_CompleteGmailLink(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	expiry := fixedNow.Add(time.Hour)

	tests := []struct {
		name        string
		creds       model.OAuthCredentials
		wantRefresh bool
	}{
		{
			name: "with refresh token and expiry",
			creds: model.OAuthCredentials{
				AccessToken: "ya29.access", RefreshToken: "1//refresh", IDToken: "id",
				Expiry: &expiry, Scopes: []string{"openid", "https://www.googleapis.com/auth/gmail.readonly"},
			},
			wantRefresh: true,
		},
		{
			name:  "non-expiring grant without refresh token",
			creds: model.OAuthCredentials{AccessToken: "ya29.access", IDToken: "id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			require.NoError(t, f.states.Create(ctx, model.OAuthState{
				StateToken: "ls", Provider: model.OAuthProviderGmail, UserID: &owner,
				RedirectURL: "https://app.example.com/settings", ExpiresAt: fixedNow.Add(time.Minute),
			}))
			f.expectExchange("c", gmailCallback, tt.creds, model.OAuthIdentity{Subject: "g1", Email: "inbox@gmail.com"})

			var sent model.ConnectionRecord
			f.connections.On("CreateConnection", mock.Anything, mock.AnythingOfType("model.ConnectionRecord")).
				Run(func(args mock.Arguments) { sent = args.Get(1).(model.ConnectionRecord) }).
				Return(nil).Once()

			target, err := f.svc.CompleteGmailLink(ctx, model.OAuthCallback{Code: "c", State: "ls", CallbackURI: gmailCallback})
			require.NoError(t, err)
			assert.Equal(t, "https://app.example.com/settings", target)

			assert.Equal(t, owner, sent.UserID)
			assert.Equal(t, model.OAuthProviderGmail, sent.Provider)
			assert.Equal(t, "inbox@gmail.com", sent.ProviderAccountID)
			assert.Equal(t, model.ConnectionStatusActive, sent.Status)
			assert.True(t, sent.IsActive)
			assert.NotNil(t, sent.Scopes)
			assert.Equal(t, tt.creds.Expiry, sent.AccessTokenExpiry)

			assert.NotEqual(t, tt.creds.AccessToken, sent.AccessToken)
			plain, err := f.cipher.Decrypt(sent.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.creds.AccessToken, plain)

			if tt.wantRefresh {
				plain, err := f.cipher.Decrypt(sent.RefreshToken)
				require.NoError(t, err)
				assert.Equal(t, tt.creds.RefreshToken, plain)
			} else {
				assert.Empty(t, sent.RefreshToken)
			}
		})
	}
}

func TestAuth_CompleteGmailLink_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("orphaned state", func(t *testing.T) {
		f := newAuthFixture(t)
		require.NoError(t, f.states.Create(ctx, model.OAuthState{
			StateToken: "ls", Provider: model.OAuthProviderGmail, ExpiresAt: fixedNow.Add(time.Minute),
		}))

		_, err := f.svc.CompleteGmailLink(ctx, model.OAuthCallback{Code: "c", State: "ls", CallbackURI: gmailCallback})
		assert.ErrorIs(t, err, model.ErrOrphanedOAuthState)

		_, ok := f.states.get("ls")
		assert.False(t, ok)
	})

	t.Run("backend rejects connection", func(t *testing.T) {
		f := newAuthFixture(t)
		owner := uuid.New()
		require.NoError(t, f.states.Create(ctx, model.OAuthState{
			StateToken: "ls", Provider: model.OAuthProviderGmail, UserID: &owner, ExpiresAt: fixedNow.Add(time.Minute),
		}))
		f.expectExchange("c", gmailCallback, model.OAuthCredentials{AccessToken: "a", IDToken: "id"}, model.OAuthIdentity{Subject: "g", Email: "x@gmail.com"})
		f.connections.On("CreateConnection", mock.Anything, mock.Anything).Return(model.ErrBadGateway).Once()

		_, err := f.svc.CompleteGmailLink(ctx, model.OAuthCallback{Code: "c", State: "ls", CallbackURI: gmailCallback})
		assert.ErrorIs(t, err, model.ErrBadGateway)
	})

	t.Run("denied", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.CompleteGmailLink(ctx, model.OAuthCallback{Error: "access_denied"})
		assert.ErrorIs(t, err, model.ErrAuthorizationDenied)
	})
}

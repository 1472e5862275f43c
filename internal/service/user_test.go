package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/composite-gateway/internal/mocks"
	"github.com/dtroode/composite-gateway/internal/model"
	"github.com/dtroode/composite-gateway/internal/password"
	"github.com/dtroode/composite-gateway/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func newUserFixture(t *testing.T) (*User, *memoryStore, *Auth) {
	t.Helper()
	store := newMemoryStore()
	hasher := password.NewBcrypt(4)
	tokens := newRealTokenService(t, store)
	users := NewUser(store, hasher, tokens, testutil.MakeNoopLogger())
	auth := NewAuth(store, newMemoryStates(), mocks.NewOAuthClient(t), nil, nil, nil, hasher, tokens, testutil.MakeNoopLogger())
	return users, store, auth
}

func TestUser_Signup(t *testing.T) {
	ctx := context.Background()
	svc, store, auth := newUserFixture(t)

	user, session, err := svc.Signup(ctx, model.SignupParams{
		Email: "ada@example.com", Password: "s3cret!", FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LoginMethodCredentials, user.LoginMethod)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cret!", *user.HashedPassword)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.HashedRefreshToken)

	_, _, err = auth.LoginCredentials(ctx, "ada@example.com", "s3cret!")
	assert.NoError(t, err)

	_, _, err = svc.Signup(ctx, model.SignupParams{Email: "ada@example.com", Password: "other"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestUser_Get(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newUserFixture(t)
	inactive := model.User{ID: uuid.New(), Email: "off@example.com"}
	store.put(inactive)

	_, err := svc.Get(ctx, inactive.ID, false)
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := svc.Get(ctx, inactive.ID, true)
	require.NoError(t, err)
	assert.Equal(t, inactive.ID, got.ID)

	_, err = svc.Get(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUser_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("names", func(t *testing.T) {
		svc, _, _ := newUserFixture(t)
		u, _, err := svc.Signup(ctx, model.SignupParams{Email: "a@example.com", Password: "pw", FirstName: "A"})
		require.NoError(t, err)

		got, err := svc.Update(ctx, u.ID, model.UserUpdate{FirstName: ptr("Grace"), LastName: ptr("Hopper")}, false)
		require.NoError(t, err)
		assert.Equal(t, "Grace", got.FirstName)
		assert.Equal(t, "Hopper", got.LastName)
		assert.Equal(t, "a@example.com", got.Email)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, _, _ := newUserFixture(t)
		u, _, err := svc.Signup(ctx, model.SignupParams{Email: "a@example.com", Password: "pw"})
		require.NoError(t, err)
		_, _, err = svc.Signup(ctx, model.SignupParams{Email: "b@example.com", Password: "pw"})
		require.NoError(t, err)

		_, err = svc.Update(ctx, u.ID, model.UserUpdate{Email: ptr("b@example.com")}, false)
		assert.ErrorIs(t, err, model.ErrEmailTaken)
	})

	t.Run("oauth user cannot change email or password", func(t *testing.T) {
		svc, store, _ := newUserFixture(t)
		sub := "g1"
		u := model.User{ID: uuid.New(), Email: "g@example.com", LoginMethod: model.LoginMethodGoogleOAuth, OAuthProviderID: &sub, IsActive: true}
		store.put(u)

		_, err := svc.Update(ctx, u.ID, model.UserUpdate{Email: ptr("new@example.com")}, false)
		assert.ErrorIs(t, err, model.ErrCredentialsRequired)

		_, err = svc.Update(ctx, u.ID, model.UserUpdate{CurrentPassword: ptr("x"), NewPassword: ptr("y")}, false)
		assert.ErrorIs(t, err, model.ErrCredentialsRequired)
	})

	t.Run("password change", func(t *testing.T) {
		svc, _, auth := newUserFixture(t)
		u, _, err := svc.Signup(ctx, model.SignupParams{Email: "a@example.com", Password: "old-pw"})
		require.NoError(t, err)

		_, err = svc.Update(ctx, u.ID, model.UserUpdate{CurrentPassword: ptr("wrong"), NewPassword: ptr("new-pw")}, false)
		assert.ErrorIs(t, err, model.ErrIncorrectPassword)

		_, err = svc.Update(ctx, u.ID, model.UserUpdate{CurrentPassword: ptr("old-pw"), NewPassword: ptr("new-pw")}, false)
		require.NoError(t, err)

		_, _, err = auth.LoginCredentials(ctx, "a@example.com", "old-pw")
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
		_, _, err = auth.LoginCredentials(ctx, "a@example.com", "new-pw")
		assert.NoError(t, err)
	})

	t.Run("inactive requires force", func(t *testing.T) {
		svc, store, _ := newUserFixture(t)
		u := model.User{ID: uuid.New(), Email: "off@example.com", LoginMethod: model.LoginMethodCredentials}
		store.put(u)

		_, err := svc.Update(ctx, u.ID, model.UserUpdate{FirstName: ptr("X")}, false)
		assert.ErrorIs(t, err, model.ErrUserInactive)

		got, err := svc.Update(ctx, u.ID, model.UserUpdate{IsActive: ptr(true)}, true)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
	})
}

func TestUser_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete deactivates and ends session", func(t *testing.T) {
		svc, store, _ := newUserFixture(t)
		u, session, err := svc.Signup(ctx, model.SignupParams{Email: "a@example.com", Password: "pw"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, u.ID, true, false))

		stored, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.Nil(t, stored.HashedRefreshToken)

		_, err = svc.tokens.Refresh(ctx, session.RefreshToken)
		assert.ErrorIs(t, err, model.ErrInvalidSession)

		err = svc.Delete(ctx, u.ID, true, false)
		assert.ErrorIs(t, err, model.ErrUserInactive)
	})

	t.Run("hard delete of inactive user needs force", func(t *testing.T) {
		svc, store, _ := newUserFixture(t)
		u := model.User{ID: uuid.New(), Email: "off@example.com"}
		store.put(u)

		require.ErrorIs(t, svc.Delete(ctx, u.ID, false, false), model.ErrUserInactive)
		require.NoError(t, svc.Delete(ctx, u.ID, false, true))

		_, err := store.GetByID(ctx, u.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _ := newUserFixture(t)
		assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), true, true), model.ErrUserInactive)
	})
}

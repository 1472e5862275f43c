package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// SessionStore is a mock type for the model.SessionStore type.
type SessionStore struct {
	mock.Mock
}

func (_m *SessionStore) RotateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	ret := _m.Called(ctx, userID, tokenHash, expiresAt)
	return ret.Error(0)
}

func (_m *SessionStore) GetBySessionHash(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	ret := _m.Called(ctx, tokenHash, now)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (_m *SessionStore) ClearSession(ctx context.Context, userID uuid.UUID) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

// NewSessionStore creates a new instance of SessionStore. It also registers a
// cleanup function to assert the mocks expectations.
func NewSessionStore(t TestingT) *SessionStore {
	m := &SessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// OAuthStateStore is a mock type for the model.OAuthStateStore type.
type OAuthStateStore struct {
	mock.Mock
}

func (_m *OAuthStateStore) Create(ctx context.Context, state model.OAuthState) error {
	ret := _m.Called(ctx, state)
	return ret.Error(0)
}

func (_m *OAuthStateStore) Consume(ctx context.Context, stateToken string, now time.Time) (model.OAuthState, error) {
	ret := _m.Called(ctx, stateToken, now)
	return ret.Get(0).(model.OAuthState), ret.Error(1)
}

// NewOAuthStateStore creates a new instance of OAuthStateStore. It also
// registers a cleanup function to assert the mocks expectations.
func NewOAuthStateStore(t TestingT) *OAuthStateStore {
	m := &OAuthStateStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// OAuthStateSweeper is a mock type for the model.OAuthStateSweeper type.
type OAuthStateSweeper struct {
	mock.Mock
}

func (_m *OAuthStateSweeper) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := _m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

// NewOAuthStateSweeper creates a new instance of OAuthStateSweeper. It also
// registers a cleanup function to assert the mocks expectations.
func NewOAuthStateSweeper(t TestingT) *OAuthStateSweeper {
	m := &OAuthStateSweeper{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

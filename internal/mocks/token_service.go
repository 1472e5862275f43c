package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// TokenService is a mock type for the handler.TokenService type.
type TokenService struct {
	mock.Mock
}

func (_m *TokenService) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	ret := _m.Called(ctx, refreshToken)
	return ret.Get(0).(model.Session), ret.Error(1)
}

func (_m *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

// NewTokenService creates a new instance of TokenService. It also registers a
// cleanup function to assert the mocks expectations.
func NewTokenService(t TestingT) *TokenService {
	m := &TokenService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// AuthService is a mock type for the handler.AuthService type.
type AuthService struct {
	mock.Mock
}

func (_m *AuthService) LoginCredentials(ctx context.Context, email, password string) (model.User, model.Session, error) {
	ret := _m.Called(ctx, email, password)
	return ret.Get(0).(model.User), ret.Get(1).(model.Session), ret.Error(2)
}

func (_m *AuthService) StartGoogleLogin(ctx context.Context, callbackURI, redirectTarget string) (string, error) {
	ret := _m.Called(ctx, callbackURI, redirectTarget)
	return ret.String(0), ret.Error(1)
}

func (_m *AuthService) CompleteGoogleLogin(ctx context.Context, cb model.OAuthCallback) (string, model.Session, error) {
	ret := _m.Called(ctx, cb)
	return ret.String(0), ret.Get(1).(model.Session), ret.Error(2)
}

func (_m *AuthService) StartGmailLink(ctx context.Context, identity model.Identity, callbackURI, redirectTarget string) (model.LinkStart, error) {
	ret := _m.Called(ctx, identity, callbackURI, redirectTarget)
	return ret.Get(0).(model.LinkStart), ret.Error(1)
}

func (_m *AuthService) CompleteGmailLink(ctx context.Context, cb model.OAuthCallback) (string, error) {
	ret := _m.Called(ctx, cb)
	return ret.String(0), ret.Error(1)
}

// NewAuthService creates a new instance of AuthService. It also registers a
// cleanup function to assert the mocks expectations.
func NewAuthService(t TestingT) *AuthService {
	m := &AuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

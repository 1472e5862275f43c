package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// OAuthClient is a mock type for the model.OAuthClient type.
type OAuthClient struct {
	mock.Mock
}

func (_m *OAuthClient) AllowedRedirectURI(redirectURI string) (string, error) {
	ret := _m.Called(redirectURI)
	return ret.String(0), ret.Error(1)
}

func (_m *OAuthClient) AuthorizationURL(redirectURI string, opts model.AuthorizationOptions) (string, string, error) {
	ret := _m.Called(redirectURI, opts)
	return ret.String(0), ret.String(1), ret.Error(2)
}

func (_m *OAuthClient) Exchange(ctx context.Context, code, redirectURI string) (model.OAuthCredentials, error) {
	ret := _m.Called(ctx, code, redirectURI)
	return ret.Get(0).(model.OAuthCredentials), ret.Error(1)
}

func (_m *OAuthClient) VerifyIdentityToken(ctx context.Context, rawIDToken string) (model.OAuthIdentity, error) {
	ret := _m.Called(ctx, rawIDToken)
	return ret.Get(0).(model.OAuthIdentity), ret.Error(1)
}

// NewOAuthClient creates a new instance of OAuthClient. It also registers a
// cleanup function to assert the mocks expectations.
func NewOAuthClient(t TestingT) *OAuthClient {
	m := &OAuthClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

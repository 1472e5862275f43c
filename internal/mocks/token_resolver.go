package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// TokenResolver is a mock type for the middleware.TokenResolver type.
type TokenResolver struct {
	mock.Mock
}

func (_m *TokenResolver) Resolve(ctx context.Context, accessToken, refreshToken string) (model.Identity, error) {
	ret := _m.Called(ctx, accessToken, refreshToken)
	return ret.Get(0).(model.Identity), ret.Error(1)
}

// NewTokenResolver creates a new instance of TokenResolver. It also registers
// a cleanup function to assert the mocks expectations.
func NewTokenResolver(t TestingT) *TokenResolver {
	m := &TokenResolver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

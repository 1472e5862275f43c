package mocks

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TokenManager is a mock type for the model.TokenManager type.
type TokenManager struct {
	mock.Mock
}

func (_m *TokenManager) IssueAccessToken(userID uuid.UUID) (string, error) {
	ret := _m.Called(userID)
	return ret.String(0), ret.Error(1)
}

func (_m *TokenManager) VerifyAccessToken(token string) (uuid.UUID, error) {
	ret := _m.Called(token)
	return ret.Get(0).(uuid.UUID), ret.Error(1)
}

func (_m *TokenManager) IssueRefreshToken() (string, error) {
	ret := _m.Called()
	return ret.String(0), ret.Error(1)
}

func (_m *TokenManager) HashRefreshToken(token string) string {
	ret := _m.Called(token)
	return ret.String(0)
}

func (_m *TokenManager) AccessTTL() time.Duration {
	ret := _m.Called()
	return ret.Get(0).(time.Duration)
}

func (_m *TokenManager) RefreshTTL() time.Duration {
	ret := _m.Called()
	return ret.Get(0).(time.Duration)
}

// NewTokenManager creates a new instance of TokenManager. It also registers a
// cleanup function to assert the mocks expectations.
func NewTokenManager(t TestingT) *TokenManager {
	m := &TokenManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

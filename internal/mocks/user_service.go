package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// UserService is a mock type for the handler.UserService type.
type UserService struct {
	mock.Mock
}

func (_m *UserService) Signup(ctx context.Context, params model.SignupParams) (model.User, model.Session, error) {
	ret := _m.Called(ctx, params)
	return ret.Get(0).(model.User), ret.Get(1).(model.Session), ret.Error(2)
}

func (_m *UserService) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (model.User, error) {
	ret := _m.Called(ctx, id, includeInactive)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (_m *UserService) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	ret := _m.Called(ctx, filter)
	var r0 []model.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.User)
	}
	return r0, ret.Error(1)
}

func (_m *UserService) Update(ctx context.Context, id uuid.UUID, update model.UserUpdate, force bool) (model.User, error) {
	ret := _m.Called(ctx, id, update, force)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (_m *UserService) Delete(ctx context.Context, id uuid.UUID, soft, force bool) error {
	ret := _m.Called(ctx, id, soft, force)
	return ret.Error(0)
}

// NewUserService creates a new instance of UserService. It also registers a
// cleanup function to assert the mocks expectations.
func NewUserService(t TestingT) *UserService {
	m := &UserService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

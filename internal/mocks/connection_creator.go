package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/model"
)

// ConnectionCreator is a mock type for the model.ConnectionCreator type.
type ConnectionCreator struct {
	mock.Mock
}

func (_m *ConnectionCreator) CreateConnection(ctx context.Context, record model.ConnectionRecord) error {
	ret := _m.Called(ctx, record)
	return ret.Error(0)
}

// NewConnectionCreator creates a new instance of ConnectionCreator. It also
// registers a cleanup function to assert the mocks expectations.
func NewConnectionCreator(t TestingT) *ConnectionCreator {
	m := &ConnectionCreator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

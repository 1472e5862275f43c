package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/composite-gateway/internal/aggregate"
	"github.com/dtroode/composite-gateway/internal/backend"
	"github.com/dtroode/composite-gateway/internal/model"
)

// GatewayService is a mock type for the handler.GatewayService type.
type GatewayService struct {
	mock.Mock
}

func (_m *GatewayService) Dashboard(ctx context.Context, identity model.Identity) (model.Dashboard, error) {
	ret := _m.Called(ctx, identity)
	return ret.Get(0).(model.Dashboard), ret.Error(1)
}

func (_m *GatewayService) Health(ctx context.Context) aggregate.Report {
	ret := _m.Called(ctx)
	return ret.Get(0).(aggregate.Report)
}

// NewGatewayService creates a new instance of GatewayService. It also
// registers a cleanup function to assert the mocks expectations.
func NewGatewayService(t TestingT) *GatewayService {
	m := &GatewayService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Forwarder is a mock type for the handler.Forwarder type.
type Forwarder struct {
	mock.Mock
}

func (_m *Forwarder) Forward(ctx context.Context, req backend.Request) (*backend.Response, error) {
	ret := _m.Called(ctx, req)
	var r0 *backend.Response
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*backend.Response)
	}
	return r0, ret.Error(1)
}

// NewForwarder creates a new instance of Forwarder. It also registers a
// cleanup function to assert the mocks expectations.
func NewForwarder(t TestingT) *Forwarder {
	m := &Forwarder{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ConnectionValidator is a mock type for the handler.ConnectionValidator type.
type ConnectionValidator struct {
	mock.Mock
}

func (_m *ConnectionValidator) ConnectionBelongsTo(ctx context.Context, connectionID, userID uuid.UUID) (bool, error) {
	ret := _m.Called(ctx, connectionID, userID)
	return ret.Bool(0), ret.Error(1)
}

// NewConnectionValidator creates a new instance of ConnectionValidator. It
// also registers a cleanup function to assert the mocks expectations.
func NewConnectionValidator(t TestingT) *ConnectionValidator {
	m := &ConnectionValidator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

package mocks

import "github.com/stretchr/testify/mock"

// TestingT is what the New* constructors need to register expectation checks.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

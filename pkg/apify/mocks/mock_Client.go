// Package mocks provides test doubles for the apify client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// RunActor provides a mock function with given fields: ctx, token, actorID, input
func (_m *MockClient) RunActor(ctx context.Context, token string, actorID string, input any) ([]map[string]any, error) {
	ret := _m.Called(ctx, token, actorID, input)

	if len(ret) == 0 {
		panic("no return value specified for RunActor")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string, any) ([]map[string]any, error)); ok {
		return rf(ctx, token, actorID, input)
	}

	var r0 []map[string]any
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]map[string]any)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

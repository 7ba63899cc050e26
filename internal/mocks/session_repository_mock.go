package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// MockSessionRepository is a mock type for the SessionRepository type
type MockSessionRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx
func (_m *MockSessionRepository) Create(ctx context.Context) (*models.Session, error) {
	ret := _m.Called(ctx)

	var r0 *models.Session
	if rf, ok := ret.Get(0).(func(context.Context) *models.Session); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Session)
		}
	}

	return r0, ret.Error(1)
}

// Get provides a mock function with given fields: ctx, id
func (_m *MockSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Session
	if rf, ok := ret.Get(0).(func(context.Context, string) *models.Session); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Session)
		}
	}

	return r0, ret.Error(1)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockSessionRepository creates a new instance of MockSessionRepository. It also registers a testing interface on the mock.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Helper()
}) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.SessionRepository = (*MockSessionRepository)(nil)

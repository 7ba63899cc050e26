package mocks

import (
	"github.com/stretchr/testify/mock"

	"mythos-server/internal/models"
	"mythos-server/internal/service"
)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: sessionID, event
func (_m *MockNotifier) Notify(sessionID string, event models.SessionEvent) {
	_m.Called(sessionID, event)
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock.
func NewMockNotifier(t interface {
	mock.TestingT
	Helper()
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.Notifier = (*MockNotifier)(nil)

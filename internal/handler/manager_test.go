package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mythos-server/internal/models"
)

func registeredClient(m *ConnectionManager, sessionID string) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[sessionID]
}

// waitRegistered дожидается, пока цикл менеджера обработает регистрацию.
func waitRegistered(t *testing.T, m *ConnectionManager, sessionID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return registeredClient(m, sessionID) != nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConnectionManager(t *testing.T) {
	t.Run("stale unregister keeps the fresh client", func(t *testing.T) {
		m := NewConnectionManager(zap.NewNop())

		fresh := &Client{SessionID: "s1", send: make(chan []byte, 1)}
		m.RegisterClient(fresh)
		waitRegistered(t, m, "s1")

		// Вытесненное соединение той же сессии снимает с учета себя,
		// а не свежего клиента.
		stale := &Client{SessionID: "s1", send: make(chan []byte, 1)}
		m.UnregisterClient(stale)

		// Регистрация другой сессии гарантирует, что дерегистрация
		// уже обработана циклом.
		m.RegisterClient(&Client{SessionID: "s2", send: make(chan []byte, 1)})
		waitRegistered(t, m, "s2")

		assert.Same(t, fresh, registeredClient(m, "s1"))

		m.Notify("s1", models.SessionEvent{Type: models.EventStoryUpdated})
		select {
		case payload, ok := <-fresh.send:
			require.True(t, ok, "send channel must stay open")
			assert.Contains(t, string(payload), models.EventStoryUpdated)
		case <-time.After(2 * time.Second):
			t.Fatal("event was not delivered to the fresh client")
		}
	})

	t.Run("unregister removes the current client and closes its queue", func(t *testing.T) {
		m := NewConnectionManager(zap.NewNop())

		client := &Client{SessionID: "s1", send: make(chan []byte, 1)}
		m.RegisterClient(client)
		waitRegistered(t, m, "s1")

		m.UnregisterClient(client)
		require.Eventually(t, func() bool {
			return registeredClient(m, "s1") == nil
		}, 2*time.Second, 5*time.Millisecond)

		_, ok := <-client.send
		assert.False(t, ok, "send channel must be closed")
	})

	t.Run("notify to offline session is a no-op", func(t *testing.T) {
		m := NewConnectionManager(zap.NewNop())
		m.Notify("ghost", models.SessionEvent{Type: models.EventSessionReset})
	})
}

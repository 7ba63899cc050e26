package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mythos-server/internal/models"
)

// Client представляет собой одно WebSocket соединение сессии.
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan []byte
}

// ConnectionManager управляет активными WebSocket соединениями и доставляет
// события изменения сессий. Реализует service.Notifier. На сессию держится
// не более одного соединения: новое вытесняет старое.
type ConnectionManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewConnectionManager создает и запускает новый менеджер соединений.
func NewConnectionManager(logger *zap.Logger) *ConnectionManager {
	m := &ConnectionManager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Named("ConnectionManager"),
	}
	go m.run()
	return m
}

// run запускает основной цикл менеджера для обработки регистрации/дерегистрации.
func (m *ConnectionManager) run() {
	m.logger.Info("ConnectionManager started")
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if oldClient, ok := m.clients[client.SessionID]; ok {
				m.logger.Info("Closing previous connection for session",
					zap.String("session_id", client.SessionID))
				close(oldClient.send)
				_ = oldClient.Conn.Close()
			}
			m.clients[client.SessionID] = client
			m.mu.Unlock()
			m.logger.Debug("Client registered", zap.String("session_id", client.SessionID))

		case client := <-m.unregister:
			m.mu.Lock()
			// Сравнение по идентичности: вытесненное при переподключении
			// соединение не должно снять с учета свежее.
			if current, ok := m.clients[client.SessionID]; ok && current == client {
				delete(m.clients, client.SessionID)
				close(client.send)
				// Само соединение закрывается в readPump/writePump клиента
			}
			m.mu.Unlock()
			m.logger.Debug("Client unregistered", zap.String("session_id", client.SessionID))
		}
	}
}

// RegisterClient регистрирует нового клиента.
func (m *ConnectionManager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient удаляет клиента, если он все еще зарегистрирован.
func (m *ConnectionManager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Notify сериализует событие и ставит его в очередь отправки соединению
// сессии. Оффлайн-сессия не является ошибкой: клиент получит актуальное
// состояние запросом GET при переподключении.
func (m *ConnectionManager) Notify(sessionID string, event models.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to marshal session event",
			zap.String("session_id", sessionID),
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}

	m.mu.RLock()
	client, ok := m.clients[sessionID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- payload:
	default:
		m.logger.Warn("Send queue full, dropping event",
			zap.String("session_id", sessionID),
			zap.String("type", event.Type))
	}
}

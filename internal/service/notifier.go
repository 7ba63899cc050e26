package service

import "mythos-server/internal/models"

// Notifier определяет интерфейс для отправки событий сессии клиенту.
// Реализуется менеджером WebSocket соединений; офлайн-клиент просто
// пропускает событие и увидит актуальное состояние при следующем снапшоте.
type Notifier interface {
	Notify(sessionID string, event models.SessionEvent)
}

// NopNotifier - заглушка для тестов и запуска без push-канала.
type NopNotifier struct{}

// Notify ничего не делает.
func (NopNotifier) Notify(string, models.SessionEvent) {}

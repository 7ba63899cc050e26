package repository

import (
	"context"
	"errors"

	"mythos-server/internal/models"
)

// ErrSessionNotFound - сессия не существует или истекла.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository определяет доступ к сессиям соавторства.
// Единственная реализация - in-memory: состояние сессии по контракту живет
// только в памяти процесса и теряется при перезапуске.
type SessionRepository interface {
	// Create создает новую пустую сессию.
	Create(ctx context.Context) (*models.Session, error)
	// Get возвращает сессию по ID.
	Get(ctx context.Context, id string) (*models.Session, error)
	// Delete удаляет сессию. Отсутствующая сессия не является ошибкой.
	Delete(ctx context.Context, id string) error
}

package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/models"
)

// memorySessionRepository хранит сессии в памяти процесса. Фоновый janitor
// вычищает сессии, неактивные дольше TTL, и дергает onEvict, чтобы владельцы
// ресурсов (озвучка) могли их освободить.
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session

	ttl     time.Duration
	logger  *zap.Logger
	onEvict func(*models.Session)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemorySessionRepository создает репозиторий и запускает janitor.
// sweepInterval <= 0 отключает фоновую уборку (удобно в тестах).
func NewMemorySessionRepository(ttl, sweepInterval time.Duration, logger *zap.Logger) *memorySessionRepository {
	r := &memorySessionRepository{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
		logger:   logger.Named("MemorySessionRepository"),
		stopCh:   make(chan struct{}),
	}
	if sweepInterval > 0 {
		go r.janitor(sweepInterval)
	}
	return r
}

// SetOnEvict задает колбэк, вызываемый для каждой вычищаемой сессии.
// Вызывать до начала обслуживания запросов.
func (r *memorySessionRepository) SetOnEvict(fn func(*models.Session)) {
	r.onEvict = fn
}

func (r *memorySessionRepository) Create(ctx context.Context) (*models.Session, error) {
	sess := models.NewSession()
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	count := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("Session created", zap.String("session_id", sess.ID), zap.Int("active_sessions", count))
	return sess, nil
}

func (r *memorySessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (r *memorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok && r.onEvict != nil {
		r.onEvict(sess)
	}
	return nil
}

// Stop останавливает janitor.
func (r *memorySessionRepository) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *memorySessionRepository) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep удаляет сессии, неактивные дольше TTL.
func (r *memorySessionRepository) sweep() {
	deadline := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*models.Session
	for id, sess := range r.sessions {
		sess.Lock()
		idle := sess.LastActiveAt.Before(deadline)
		sess.Unlock()
		if idle {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	for _, sess := range expired {
		if r.onEvict != nil {
			r.onEvict(sess)
		}
		r.logger.Info("Expired session evicted", zap.String("session_id", sess.ID))
	}
	if len(expired) > 0 {
		r.logger.Info("Session sweep finished",
			zap.Int("evicted", len(expired)),
			zap.Int("active_sessions", remaining))
	}
}

package service

import (
	"context"

	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// SessionService - жизненный цикл сессий соавторства и верхнеуровневая
// навигация (режим, вкладки, полный сброс).
type SessionService struct {
	sessions  repository.SessionRepository
	narration *NarrationService
	notifier  Notifier
	logger    *zap.Logger
}

// NewSessionService создает SessionService. narration нужен сбросу,
// чтобы корректно разобрать активную озвучку.
func NewSessionService(
	sessions repository.SessionRepository,
	narration *NarrationService,
	notifier Notifier,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		narration: narration,
		notifier:  notifier,
		logger:    logger.Named("SessionService"),
	}
}

// Create создает новую сессию.
func (s *SessionService) Create(ctx context.Context) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	snap := sess.Snapshot()
	sess.Unlock()

	s.logger.Info("Session created", zap.String("session_id", snap.ID))
	return snap, nil
}

// Get возвращает текущий слепок состояния сессии.
func (s *SessionService) Get(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	sess.Touch()
	snap := sess.Snapshot()
	sess.Unlock()
	return snap, nil
}

// Reset выполняет "Start Over": очищает все сторы и флаги, разбирает
// активную озвучку и возвращает сессию в начальный режим. Счётчики поколений
// инкрементируются, чтобы обесценить все незавершённые запросы.
func (s *SessionService) Reset(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	sess.Touch()

	s.narration.teardownLocked(sess)

	sess.Mode = models.ModeInitial
	sess.ActiveTab = models.TabWriter
	sess.Story = nil
	sess.Entities = nil
	sess.Suggestions = nil
	sess.LastGuidance = ""
	sess.GenerationError = ""
	sess.GenerationLoading = false
	sess.Viewer = models.ViewerState{}
	sess.VisualPrompt = models.VisualPromptState{}
	sess.OracleLog = nil
	sess.OracleLoading = false

	sess.GenerationSeq++
	sess.VisualizeSeq++
	sess.VisualPromptSeq++
	sess.OracleSeq++
	// NarrationSeq уже инкрементирован teardownLocked

	snap := sess.Snapshot()
	sess.Unlock()

	s.logger.Info("Session reset", zap.String("session_id", sessionID))
	s.notifier.Notify(sessionID, models.SessionEvent{Type: models.EventSessionReset, Snapshot: snap})
	return snap, nil
}

// SelectTab переключает активную вкладку. В начальном режиме вкладок нет.
// Переключение закрывает открытый просмотрщик визуализаций.
func (s *SessionService) SelectTab(ctx context.Context, sessionID string, tab models.Tab) (models.SessionSnapshot, error) {
	if !tab.IsValid() {
		return models.SessionSnapshot{}, ErrInvalidTab
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	sess.Touch()

	if sess.Mode == models.ModeInitial {
		sess.Unlock()
		return models.SessionSnapshot{}, ErrTabUnavailable
	}

	sess.ActiveTab = tab
	// Как и явное закрытие, смена вкладки не обесценивает незавершённую
	// визуализацию: готовое изображение всё равно осядет в сторе.
	if sess.Viewer.Open {
		sess.Viewer = models.ViewerState{}
	}
	snap := sess.Snapshot()
	sess.Unlock()
	return snap, nil
}

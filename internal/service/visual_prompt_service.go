package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// VisualPromptService - оркестратор потока "визуального промпта":
// альтернативный вход в генерацию, где сначала рождается образ, а уже от
// него пользователь отталкивается текстом. Два сетевых запроса (фраза, затем
// изображение) сцеплены последовательно; падение первого обрывает цепочку.
type VisualPromptService struct {
	sessions    repository.SessionRepository
	ai          AIClient
	prompts     *PromptBuilder
	suggestions *SuggestionService
	notifier    Notifier
	logger      *zap.Logger
	timeout     time.Duration
}

// NewVisualPromptService создает VisualPromptService.
func NewVisualPromptService(
	sessions repository.SessionRepository,
	ai AIClient,
	prompts *PromptBuilder,
	suggestions *SuggestionService,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
) *VisualPromptService {
	return &VisualPromptService{
		sessions:    sessions,
		ai:          ai,
		prompts:     prompts,
		suggestions: suggestions,
		notifier:    notifier,
		logger:      logger.Named("VisualPromptService"),
		timeout:     timeout,
	}
}

// Start входит в режим визуального промпта (он же regenerate: перезапуск с
// нуля). Предложения очищаются; цепочка фраза -> изображение выполняется в
// фоне, единая ошибка на обе стадии.
func (s *VisualPromptService) Start(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Lock()
	sess.Touch()
	sess.Mode = models.ModeVisualPrompt
	sess.Suggestions = nil
	sess.VisualPrompt = models.VisualPromptState{Loading: true}
	sess.VisualPromptSeq++
	seq := sess.VisualPromptSeq
	story := sess.StoryTexts()
	sess.Unlock()

	go s.run(sess, seq, story)
	return nil
}

// Submit принимает guidance пользователя: возврат в режим письма и запуск
// генерации. Отложенная картинка НЕ очищается - её потребит принятие
// следующего предложения.
func (s *VisualPromptService) Submit(ctx context.Context, sessionID, guidance string) error {
	if strings.TrimSpace(guidance) == "" {
		return ErrEmptyGuidance
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Lock()
	if sess.VisualPrompt.Loading {
		sess.Unlock()
		return ErrVisualPromptInFlight
	}
	sess.Mode = models.ModeWriting
	sess.Unlock()

	return s.suggestions.Generate(ctx, sessionID, guidance)
}

// Cancel отбрасывает отложенную картинку и все transient-флаги потока.
// Режим возвращается в writing, если история непуста, иначе в initial.
func (s *VisualPromptService) Cancel(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	sess.Touch()
	sess.VisualPrompt = models.VisualPromptState{}
	sess.VisualPromptSeq++ // незавершённая цепочка будет отброшена
	if len(sess.Story) > 0 {
		sess.Mode = models.ModeWriting
	} else {
		sess.Mode = models.ModeInitial
	}
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sessionID, models.SessionEvent{Type: models.EventVisualPromptUpdate, Snapshot: snap})
	return snap, nil
}

func (s *VisualPromptService) run(sess *models.Session, seq uint64, story []string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Стадия 1: образная фраза из истории
	systemPrompt, userInput := s.prompts.ImagePromptPrompt(story)
	var resp imagePromptResponse
	err := s.ai.GenerateJSON(ctx, systemPrompt, userInput, &resp)
	if err == nil && strings.TrimSpace(resp.Prompt) == "" {
		err = ErrAIGenerationFailed
	}

	// Стадия 2: изображение по фразе (только если стадия 1 успешна)
	var image string
	if err == nil {
		image, err = s.ai.GenerateImage(ctx, resp.Prompt)
	}

	sess.Lock()
	if sess.VisualPromptSeq != seq {
		sess.Unlock()
		s.logger.Debug("Stale visual prompt result discarded",
			zap.String("session_id", sess.ID),
			zap.Uint64("seq", seq))
		return
	}
	sess.VisualPrompt.Loading = false
	if err != nil {
		s.logger.Warn("Visual prompt chain failed",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		sess.VisualPrompt.PendingImage = ""
		sess.VisualPrompt.Error = MsgVisualPromptFailed
	} else {
		sess.VisualPrompt.PendingImage = image
		sess.VisualPrompt.Error = ""
	}
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sess.ID, models.SessionEvent{Type: models.EventVisualPromptUpdate, Snapshot: snap})
}

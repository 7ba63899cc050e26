package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// SuggestionService - оркестратор базового потока генерации: запрашивает у
// бэкенда 3-5 вариантов продолжения, принимает выбранный вариант в историю
// и тут же запускает следующий раунд с принятым абзацем в роли guidance.
type SuggestionService struct {
	sessions repository.SessionRepository
	ai       AIClient
	prompts  *PromptBuilder
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
}

// NewSuggestionService создает SuggestionService.
func NewSuggestionService(
	sessions repository.SessionRepository,
	ai AIClient,
	prompts *PromptBuilder,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
) *SuggestionService {
	return &SuggestionService{
		sessions: sessions,
		ai:       ai,
		prompts:  prompts,
		notifier: notifier,
		logger:   logger.Named("SuggestionService"),
		timeout:  timeout,
	}
}

// Generate запускает асинхронную генерацию вариантов продолжения.
// Синхронно: флаги загрузки, сброс предложений и общей ошибки, переход
// initial -> writing, возврат на вкладку writer. Результат применяется
// фоновой горутиной, только если её токен поколения всё ещё актуален.
func (s *SuggestionService) Generate(ctx context.Context, sessionID, guidance string) error {
	guidance = strings.TrimSpace(guidance)
	if guidance == "" {
		return ErrEmptyGuidance
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Lock()
	sess.Touch()
	sess.GenerationLoading = true
	sess.GenerationError = ""
	sess.Suggestions = nil
	sess.ActiveTab = models.TabWriter
	if sess.Mode == models.ModeInitial {
		sess.Mode = models.ModeWriting
	}
	sess.GenerationSeq++
	seq := sess.GenerationSeq
	story := sess.StoryTexts()
	entities := sess.EntitiesCopy()
	sess.Unlock()

	go s.run(sess, seq, story, entities, guidance)
	return nil
}

// Regenerate повторяет генерацию с последним guidance. Определен, только
// когда последний guidance существует и генерация не идёт прямо сейчас.
func (s *SuggestionService) Regenerate(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Lock()
	if sess.GenerationLoading {
		sess.Unlock()
		return ErrGenerationInFlight
	}
	guidance := sess.LastGuidance
	sess.Unlock()

	if guidance == "" {
		return ErrNoLastGuidance
	}
	return s.Generate(ctx, sessionID, guidance)
}

// Accept принимает выбранное предложение: добавляет блок истории (потребляя
// отложенную картинку визуального промпта, если она есть), очищает
// предложения и немедленно запускает генерацию следующего раунда, где
// принятый абзац становится новым guidance.
func (s *SuggestionService) Accept(ctx context.Context, sessionID, suggestion string) (models.StoryBlock, error) {
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" {
		return models.StoryBlock{}, ErrEmptySuggestion
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.StoryBlock{}, err
	}

	sess.Lock()
	sess.Touch()
	block := models.StoryBlock{
		ID:   models.NewStoryBlockID(),
		Text: suggestion,
	}
	if pending := sess.VisualPrompt.PendingImage; pending != "" {
		block.Image = pending
		block.ImagePrompt = true
		sess.VisualPrompt.PendingImage = ""
	}
	// Замена целиком, чтобы читатели видели консистентный снапшот
	story := make([]models.StoryBlock, 0, len(sess.Story)+1)
	story = append(story, sess.Story...)
	story = append(story, block)
	sess.Story = story
	sess.Suggestions = nil
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sessionID, models.SessionEvent{Type: models.EventStoryUpdated, Snapshot: snap})

	if err := s.Generate(ctx, sessionID, suggestion); err != nil {
		return block, err
	}
	return block, nil
}

func (s *SuggestionService) run(sess *models.Session, seq uint64, story []string, entities []models.WorldEntity, guidance string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	systemPrompt, userInput := s.prompts.ContinuationPrompt(story, guidance, entities)
	var resp suggestionsResponse
	err := s.ai.GenerateJSON(ctx, systemPrompt, userInput, &resp)

	suggestions := resp.Suggestions
	if err == nil && len(suggestions) == 0 {
		err = ErrAIGenerationFailed
	}
	if len(suggestions) > 5 {
		s.logger.Warn("Backend returned too many suggestions, truncating",
			zap.String("session_id", sess.ID),
			zap.Int("count", len(suggestions)))
		suggestions = suggestions[:5]
	}

	sess.Lock()
	if sess.GenerationSeq != seq {
		sess.Unlock()
		s.logger.Debug("Stale suggestion result discarded",
			zap.String("session_id", sess.ID),
			zap.Uint64("seq", seq))
		return
	}
	sess.GenerationLoading = false
	if err != nil {
		s.logger.Warn("Suggestion generation failed",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		sess.Suggestions = nil
		sess.GenerationError = MsgSuggestionsFailed
	} else {
		sess.Suggestions = suggestions
		sess.LastGuidance = guidance
	}
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sess.ID, models.SessionEvent{Type: models.EventSuggestionsUpdated, Snapshot: snap})
}

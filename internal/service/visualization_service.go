package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// VisualizationService - оркестратор просмотрщика иллюстраций: запрашивает
// изображение для отрывка и сохраняет результат на породивший блок истории
// или сущность мира. Пространства ID блоков и сущностей не пересекаются,
// поэтому совпадение возможно максимум одно.
type VisualizationService struct {
	sessions repository.SessionRepository
	ai       AIClient
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
}

// NewVisualizationService создает VisualizationService.
func NewVisualizationService(
	sessions repository.SessionRepository,
	ai AIClient,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
) *VisualizationService {
	return &VisualizationService{
		sessions: sessions,
		ai:       ai,
		notifier: notifier,
		logger:   logger.Named("VisualizationService"),
		timeout:  timeout,
	}
}

// Visualize открывает просмотрщик и асинхронно запрашивает иллюстрацию для
// текста. Предыдущая картинка и ошибка очищаются сразу.
func (s *VisualizationService) Visualize(ctx context.Context, sessionID, contentID, text string) error {
	text = strings.TrimSpace(text)
	if contentID == "" || text == "" {
		return ErrStoryBlockNotFound
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Lock()
	sess.Touch()
	sess.Viewer = models.ViewerState{
		Open:        true,
		ContentID:   contentID,
		ContentText: text,
		Loading:     true,
	}
	sess.ActiveTab = models.TabWriter
	sess.VisualizeSeq++
	seq := sess.VisualizeSeq
	sess.Unlock()

	go s.run(sess, seq, contentID, text)
	return nil
}

// Regenerate повторяет запрос для содержимого, открытого в просмотрщике.
func (s *VisualizationService) Regenerate(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Lock()
	if !sess.Viewer.Open || sess.Viewer.ContentID == "" {
		sess.Unlock()
		return ErrViewerNotOpen
	}
	contentID := sess.Viewer.ContentID
	text := sess.Viewer.ContentText
	sess.Unlock()

	return s.Visualize(ctx, sessionID, contentID, text)
}

// View открывает просмотрщик с уже сохраненной картинкой блока, без запроса
// к бэкенду.
func (s *VisualizationService) View(ctx context.Context, sessionID, blockID string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	defer sess.Unlock()

	var block *models.StoryBlock
	for i := range sess.Story {
		if sess.Story[i].ID == blockID {
			block = &sess.Story[i]
			break
		}
	}
	if block == nil {
		return models.SessionSnapshot{}, ErrStoryBlockNotFound
	}

	sess.Touch()
	sess.Viewer = models.ViewerState{
		Open:        true,
		ContentID:   block.ID,
		ContentText: block.Text,
		Image:       block.Image,
	}
	return sess.Snapshot(), nil
}

// Close закрывает просмотрщик, очищая всё его transient-состояние.
// Сторы не мутируются; незавершённый запрос не отменяется - его результат
// всё равно сохранится на блок/сущность, а просмотрщик не тронет.
func (s *VisualizationService) Close(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	defer sess.Unlock()
	sess.Touch()
	sess.Viewer = models.ViewerState{}
	return sess.Snapshot(), nil
}

func (s *VisualizationService) run(sess *models.Session, seq uint64, contentID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	image, err := s.ai.GenerateImage(ctx, text)

	sess.Lock()
	if sess.VisualizeSeq != seq {
		sess.Unlock()
		s.logger.Debug("Stale visualization result discarded",
			zap.String("session_id", sess.ID),
			zap.Uint64("seq", seq))
		return
	}

	viewerCurrent := sess.Viewer.Open && sess.Viewer.ContentID == contentID
	if viewerCurrent {
		sess.Viewer.Loading = false
	}

	if err != nil {
		s.logger.Warn("Visualization failed",
			zap.String("session_id", sess.ID),
			zap.String("content_id", contentID),
			zap.Error(err))
		if viewerCurrent {
			// Просмотрщик остаётся открытым для повторной попытки
			sess.Viewer.Error = MsgVisualizeFailed
		}
	} else {
		if viewerCurrent {
			sess.Viewer.Image = image
		}
		s.persistImageLocked(sess, contentID, image)
	}

	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sess.ID, models.SessionEvent{Type: models.EventVisualizationUpdate, Snapshot: snap})
}

// persistImageLocked сохраняет картинку на блок истории и/или сущность с
// совпадающим ID. Замена срезов целиком. Вызывать под Lock.
func (s *VisualizationService) persistImageLocked(sess *models.Session, contentID, image string) {
	for i := range sess.Story {
		if sess.Story[i].ID == contentID {
			story := make([]models.StoryBlock, len(sess.Story))
			copy(story, sess.Story)
			story[i].Image = image
			sess.Story = story
			return
		}
	}
	for i := range sess.Entities {
		if sess.Entities[i].ID == contentID {
			entities := make([]models.WorldEntity, len(sess.Entities))
			copy(entities, sess.Entities)
			entities[i].Image = image
			sess.Entities = entities
			return
		}
	}
}

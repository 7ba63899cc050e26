package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// OracleService - диалог с Оракулом, всезнающим рассказчиком мира. Особенность
// потока: ошибки не оседают в отдельном слоте, а складываются в транскрипт
// ответом самого Оракула, так что диалог всегда остаётся связным.
type OracleService struct {
	sessions repository.SessionRepository
	ai       AIClient
	prompts  *PromptBuilder
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
}

// NewOracleService создает OracleService.
func NewOracleService(
	sessions repository.SessionRepository,
	ai AIClient,
	prompts *PromptBuilder,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
) *OracleService {
	return &OracleService{
		sessions: sessions,
		ai:       ai,
		prompts:  prompts,
		notifier: notifier,
		logger:   logger.Named("OracleService"),
		timeout:  timeout,
	}
}

// Ask отправляет вопрос Оракулу. Вопрос появляется в транскрипте сразу
// (оптимистично), ответ приходит асинхронно.
func (s *OracleService) Ask(ctx context.Context, sessionID, question string) (models.SessionSnapshot, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.SessionSnapshot{}, ErrEmptyQuestion
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	sess.Touch()

	if sess.OracleLoading {
		sess.Unlock()
		return models.SessionSnapshot{}, ErrOracleBusy
	}

	sess.OracleLog = append(sess.OracleLog, models.OracleMessage{
		Author: models.OracleAuthorUser,
		Text:   question,
	})
	sess.OracleLoading = true
	sess.OracleSeq++
	seq := sess.OracleSeq
	story := sess.StoryTexts()
	entities := sess.EntitiesCopy()
	snap := sess.Snapshot()
	sess.Unlock()

	go s.run(sess, seq, question, story, entities)
	return snap, nil
}

// Transcript возвращает текущий транскрипт диалога.
func (s *OracleService) Transcript(ctx context.Context, sessionID string) ([]models.OracleMessage, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	log := make([]models.OracleMessage, len(sess.OracleLog))
	copy(log, sess.OracleLog)
	return log, nil
}

func (s *OracleService) run(sess *models.Session, seq uint64, question string, story []string, entities []models.WorldEntity) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	system, user := s.prompts.OraclePrompt(question, story, entities)
	answer, err := s.ai.GenerateText(ctx, system, user)
	answer = strings.TrimSpace(answer)

	sess.Lock()
	if sess.OracleSeq != seq {
		sess.Unlock()
		s.logger.Debug("Stale oracle answer discarded", zap.String("session_id", sess.ID))
		return
	}

	switch {
	case err != nil:
		s.logger.Warn("Oracle answer failed", zap.String("session_id", sess.ID), zap.Error(err))
		detail := MsgOracleUnknownErr
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			detail = msg
		}
		sess.OracleLog = append(sess.OracleLog, models.OracleMessage{
			Author: models.OracleAuthorOracle,
			Text:   MsgOraclePrefix + detail,
		})
	case answer == "":
		sess.OracleLog = append(sess.OracleLog, models.OracleMessage{
			Author: models.OracleAuthorOracle,
			Text:   MsgOraclePrefix + MsgOracleUnknownErr,
		})
	default:
		sess.OracleLog = append(sess.OracleLog, models.OracleMessage{
			Author: models.OracleAuthorOracle,
			Text:   answer,
		})
	}
	sess.OracleLoading = false
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sess.ID, models.SessionEvent{Type: models.EventOracleUpdated, Snapshot: snap})
}

package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/audio"
	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// NarrationService - машина состояний озвучивания абзацев. Инвариант: не
// более одной активной озвучки на сессию; запуск новой сначала разбирает
// предыдущую (останавливает таймер, освобождает буфер). Повторный narrate
// по играющему блоку - это toggle-стоп без нового запроса.
type NarrationService struct {
	sessions repository.SessionRepository
	ai       AIClient
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	// errorClearDelay - задержка самовосстановления статуса error в idle.
	errorClearDelay time.Duration

	mu sync.Mutex
	// Таймер авто-стопа/очистки ошибки на сессию - это и есть единственный
	// "аппаратный" ресурс воспроизведения на стороне сервера.
	timers map[string]*time.Timer
}

// NewNarrationService создает NarrationService.
func NewNarrationService(
	sessions repository.SessionRepository,
	ai AIClient,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
	errorClearDelay time.Duration,
) *NarrationService {
	return &NarrationService{
		sessions:        sessions,
		ai:              ai,
		notifier:        notifier,
		logger:          logger.Named("NarrationService"),
		timeout:         timeout,
		errorClearDelay: errorClearDelay,
		timers:          make(map[string]*time.Timer),
	}
}

// Narrate обрабатывает запрос озвучки блока.
func (s *NarrationService) Narrate(ctx context.Context, sessionID, blockID string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	sess.Lock()
	sess.Touch()

	var block *models.StoryBlock
	for i := range sess.Story {
		if sess.Story[i].ID == blockID {
			block = &sess.Story[i]
			break
		}
	}
	if block == nil {
		sess.Unlock()
		return models.SessionSnapshot{}, ErrStoryBlockNotFound
	}

	// Toggle: повторный запрос по играющему блоку останавливает озвучку
	if cur := sess.Narration; cur != nil && cur.BlockID == blockID && cur.Status == models.NarrationStatusPlaying {
		s.teardownLocked(sess)
		snap := sess.Snapshot()
		sess.Unlock()
		s.notifier.Notify(sessionID, models.SessionEvent{Type: models.EventNarrationUpdate, Snapshot: snap})
		return snap, nil
	}

	// Любая другая активная озвучка разбирается перед запуском новой
	if sess.Narration != nil {
		s.teardownLocked(sess)
	}

	sess.Narration = &models.NarrationState{
		BlockID: blockID,
		Status:  models.NarrationStatusLoading,
	}
	sess.NarrationSeq++
	seq := sess.NarrationSeq
	text := block.Text
	snap := sess.Snapshot()
	sess.Unlock()

	go s.run(sess, seq, blockID, text)
	return snap, nil
}

// Stop принудительно останавливает озвучку сессии (использует сброс сессии
// и вычистка истекших сессий).
func (s *NarrationService) Stop(sess *models.Session) {
	sess.Lock()
	s.teardownLocked(sess)
	sess.Unlock()
}

// Audio возвращает аудио-ресурс текущей озвучки.
func (s *NarrationService) Audio(ctx context.Context, sessionID string) (string, *models.NarrationAudio, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	n := sess.Narration
	if n == nil || n.Audio == nil {
		return "", nil, ErrNoActiveNarration
	}
	return n.BlockID, n.Audio, nil
}

// teardownLocked разбирает текущую озвучку: снимает таймер, освобождает
// буфер, обесценивает незавершённый запрос. Вызывать под Lock сессии.
func (s *NarrationService) teardownLocked(sess *models.Session) {
	s.setTimer(sess.ID, nil)
	sess.Narration = nil
	sess.NarrationSeq++
}

// setTimer заменяет таймер сессии, останавливая предыдущий. t == nil только
// снимает таймер.
func (s *NarrationService) setTimer(sessionID string, t *time.Timer) {
	s.mu.Lock()
	if old, ok := s.timers[sessionID]; ok {
		old.Stop()
		delete(s.timers, sessionID)
	}
	if t != nil {
		s.timers[sessionID] = t
	}
	s.mu.Unlock()
}

func (s *NarrationService) run(sess *models.Session, seq uint64, blockID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	payload, err := s.ai.GenerateSpeech(ctx, text)
	var buf *audio.Buffer
	if err == nil {
		buf, err = audio.DecodeBase64PCM16(payload, audio.SampleRate, audio.Channels)
	}

	sess.Lock()
	if sess.NarrationSeq != seq || sess.Narration == nil || sess.Narration.BlockID != blockID {
		sess.Unlock()
		s.logger.Debug("Stale narration result discarded",
			zap.String("session_id", sess.ID),
			zap.String("block_id", blockID))
		return
	}

	if err != nil {
		s.logger.Warn("Narration failed",
			zap.String("session_id", sess.ID),
			zap.String("block_id", blockID),
			zap.Error(err))
		sess.Narration.Status = models.NarrationStatusError
		// Ошибка самовосстанавливается, если её не вытеснит новый запрос
		s.setTimer(sess.ID, time.AfterFunc(s.errorClearDelay, func() {
			s.clearIfCurrent(sess, seq, models.NarrationStatusError)
		}))
	} else {
		duration := buf.Duration()
		sess.Narration.Status = models.NarrationStatusPlaying
		sess.Narration.Audio = &models.NarrationAudio{
			Raw:        buf.Raw,
			Channels:   buf.Channels,
			SampleRate: buf.SampleRate,
			Duration:   duration,
		}
		// Авто-стоп по окончании воспроизведения
		s.setTimer(sess.ID, time.AfterFunc(duration, func() {
			s.clearIfCurrent(sess, seq, models.NarrationStatusPlaying)
		}))
	}
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sess.ID, models.SessionEvent{Type: models.EventNarrationUpdate, Snapshot: snap})
}

// clearIfCurrent возвращает озвучку в idle, если она всё ещё в ожидаемом
// состоянии того же поколения (иначе её уже вытеснили или остановили).
func (s *NarrationService) clearIfCurrent(sess *models.Session, seq uint64, expected models.NarrationStatus) {
	sess.Lock()
	if sess.NarrationSeq != seq || sess.Narration == nil || sess.Narration.Status != expected {
		sess.Unlock()
		return
	}
	sess.Narration = nil
	// Таймер снимается под тем же Lock, что и установка нового в run:
	// иначе гонка с новым Narrate остановила бы чужой таймер.
	s.setTimer(sess.ID, nil)
	snap := sess.Snapshot()
	sess.Unlock()

	s.notifier.Notify(sess.ID, models.SessionEvent{Type: models.EventNarrationUpdate, Snapshot: snap})
}

package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// AppMode - верхнеуровневый режим приложения.
type AppMode string

const (
	ModeInitial      AppMode = "initial"
	ModeWriting      AppMode = "writing"
	ModeVisualPrompt AppMode = "visual_prompt"
)

// Tab - активная вкладка вне начального режима.
type Tab string

const (
	TabWriter Tab = "writer"
	TabWorld  Tab = "world"
	TabOracle Tab = "oracle"
)

// IsValid проверяет, что вкладка известна.
func (t Tab) IsValid() bool {
	switch t {
	case TabWriter, TabWorld, TabOracle:
		return true
	}
	return false
}

// ViewerState - transient-состояние просмотрщика визуализаций.
// Закрытие просмотрщика очищает всё состояние, но не трогает сторы.
type ViewerState struct {
	Open        bool   `json:"open"`
	ContentID   string `json:"contentId,omitempty"`
	ContentText string `json:"contentText,omitempty"`
	Image       string `json:"image,omitempty"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
}

// VisualPromptState - состояние потока визуального промпта.
// PendingImage не очищается при submit: её потребляет принятие
// следующего предложения, помечая новый блок как image-prompt opener.
type VisualPromptState struct {
	PendingImage string `json:"pendingImage,omitempty"`
	Loading      bool   `json:"loading"`
	Error        string `json:"error,omitempty"`
}

// Session - всё состояние одной сессии соавторства. Владелец мутаций каждого
// стора - ровно один сервис; читают несколько. Доступ только под mu, чтение
// наружу - через Snapshot (полные копии, без разделяемых срезов).
type Session struct {
	mu sync.Mutex

	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time

	Mode      AppMode
	ActiveTab Tab

	Story    []StoryBlock
	Entities []WorldEntity

	Suggestions  []string
	LastGuidance string
	// Общий слот ошибки базового потока генерации (единственный "глобальный").
	GenerationError   string
	GenerationLoading bool

	Viewer       ViewerState
	VisualPrompt VisualPromptState

	Narration     *NarrationState
	OracleLog     []OracleMessage
	OracleLoading bool

	// Счётчики поколений асинхронных операций: результат применяется, только
	// если его токен совпадает с текущим счётчиком. Устаревшие ответы
	// отбрасываются, а не перезаписывают более новое состояние.
	GenerationSeq   uint64
	VisualizeSeq    uint64
	VisualPromptSeq uint64
	NarrationSeq    uint64
	OracleSeq       uint64
}

// NewSession создает пустую сессию в начальном режиме.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
		Mode:         ModeInitial,
		ActiveTab:    TabWriter,
	}
}

// Lock захватывает мьютекс сессии.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock освобождает мьютекс сессии.
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch обновляет отметку последней активности. Вызывать под Lock.
func (s *Session) Touch() { s.LastActiveAt = time.Now() }

// SessionSnapshot - консистентный слепок состояния сессии для клиента.
type SessionSnapshot struct {
	ID           string            `json:"id"`
	Mode         AppMode           `json:"mode"`
	ActiveTab    Tab               `json:"activeTab"`
	Story        []StoryBlock      `json:"story"`
	Entities     []WorldEntity     `json:"entities"`
	Suggestions  []string          `json:"suggestions"`
	LastGuidance string            `json:"lastGuidance,omitempty"`
	Loading      bool              `json:"loading"`
	Error        string            `json:"error,omitempty"`
	Viewer       ViewerState       `json:"viewer"`
	VisualPrompt VisualPromptState `json:"visualPrompt"`
	Narration    *NarrationState   `json:"narration,omitempty"`
	OracleLog    []OracleMessage   `json:"oracleLog"`
	OracleBusy   bool              `json:"oracleBusy"`
}

// Snapshot возвращает копию состояния. Вызывать под Lock.
func (s *Session) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:           s.ID,
		Mode:         s.Mode,
		ActiveTab:    s.ActiveTab,
		Story:        make([]StoryBlock, len(s.Story)),
		Entities:     make([]WorldEntity, len(s.Entities)),
		Suggestions:  make([]string, len(s.Suggestions)),
		LastGuidance: s.LastGuidance,
		Loading:      s.GenerationLoading,
		Error:        s.GenerationError,
		Viewer:       s.Viewer,
		VisualPrompt: s.VisualPrompt,
		OracleLog:    make([]OracleMessage, len(s.OracleLog)),
		OracleBusy:   s.OracleLoading,
	}
	copy(snap.Story, s.Story)
	copy(snap.Entities, s.Entities)
	copy(snap.Suggestions, s.Suggestions)
	copy(snap.OracleLog, s.OracleLog)
	if s.Narration != nil {
		n := *s.Narration
		snap.Narration = &n
	}
	return snap
}

// StoryTexts возвращает тексты блоков истории по порядку. Вызывать под Lock.
func (s *Session) StoryTexts() []string {
	texts := make([]string, len(s.Story))
	for i, b := range s.Story {
		texts[i] = b.Text
	}
	return texts
}

// EntitiesCopy возвращает копию списка сущностей. Вызывать под Lock.
func (s *Session) EntitiesCopy() []WorldEntity {
	out := make([]WorldEntity, len(s.Entities))
	copy(out, s.Entities)
	return out
}

package models

// Типы событий, отправляемых клиенту сессии по WebSocket после завершения
// асинхронных операций (чтобы представление обновляло флаги без опроса).
const (
	EventSuggestionsUpdated  = "suggestions.updated"
	EventStoryUpdated        = "story.updated"
	EventVisualizationUpdate = "visualization.updated"
	EventVisualPromptUpdate  = "visual_prompt.updated"
	EventNarrationUpdate     = "narration.updated"
	EventOracleUpdated       = "oracle.updated"
	EventSessionReset        = "session.reset"
)

// SessionEvent - событие изменения состояния сессии.
type SessionEvent struct {
	Type     string          `json:"type"`
	Snapshot SessionSnapshot `json:"snapshot"`
}

package handler

// Тела запросов API. Валидация содержимого (пустые строки и т.п.) живет в
// сервисном слое; биндинг здесь только раскладывает JSON.

type guidanceRequest struct {
	Guidance string `json:"guidance"`
}

type acceptSuggestionRequest struct {
	Suggestion string `json:"suggestion"`
}

type visualizeRequest struct {
	ContentID string `json:"contentId" binding:"required"`
	Text      string `json:"text"`
}

type viewVisualizationRequest struct {
	BlockID string `json:"blockId" binding:"required"`
}

type selectTabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type upsertEntityRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type describeEntityRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type describeEntityResponse struct {
	Description string `json:"description"`
}

type narrateRequest struct {
	BlockID string `json:"blockId" binding:"required"`
}

type oracleAskRequest struct {
	Question string `json:"question"`
}

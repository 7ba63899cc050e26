package service

import "errors"

// Ошибки генерации (AI бэкенд).
var (
	ErrAIGenerationFailed     = errors.New("ошибка генерации текста AI")
	ErrImageGenerationFailed  = errors.New("image generation failed")
	ErrSpeechGenerationFailed = errors.New("speech generation failed")
	// ErrCapabilityNotSupported - выбранный AI клиент не умеет данную операцию
	// (например, ollama не генерирует изображения и речь).
	ErrCapabilityNotSupported = errors.New("capability not supported by configured AI client")
)

// Ошибки валидации и состояния оркестраторов.
var (
	ErrEmptyGuidance        = errors.New("guidance must not be empty")
	ErrEmptySuggestion      = errors.New("suggestion must not be empty")
	ErrEmptyQuestion        = errors.New("question must not be empty")
	ErrGenerationInFlight   = errors.New("a generation request is already in flight")
	ErrNoLastGuidance       = errors.New("no previous guidance to regenerate from")
	ErrStoryBlockNotFound   = errors.New("story block not found")
	ErrViewerNotOpen        = errors.New("visualization viewer is not open")
	ErrVisualPromptInFlight = errors.New("visual prompt request is already in flight")
	ErrOracleBusy           = errors.New("oracle is already answering a question")
	ErrNoActiveNarration    = errors.New("no active narration")
	ErrTabUnavailable       = errors.New("tabs are not available in the initial mode")
	ErrInvalidTab           = errors.New("unknown tab")
	ErrEntityValidation     = errors.New("entity validation failed")
	ErrEntityNameRequired   = errors.New("entity name is required")
)

// Человекочитаемые сообщения per-orchestrator слотов ошибок.
// Тексты совпадают с исходным приложением.
const (
	MsgSuggestionsFailed  = "Failed to generate suggestions. Please check your API key and try again."
	MsgVisualizeFailed    = "Failed to evoke the scene. The muses may be busy."
	MsgVisualPromptFailed = "Failed to summon inspiration. The cosmos is quiet."
	MsgDescriptionFailed  = "Failed to generate description. The muses are silent."
	MsgEntityInvalid      = "Name and description cannot be empty."
	MsgNameFirst          = "Please provide a name first."
	// Оракул складывает ошибку прямо в транскрипт, а не в отдельный слот.
	MsgOraclePrefix     = "The Oracle is silent. "
	MsgOracleUnknownErr = "An unknown disturbance occurred."
)

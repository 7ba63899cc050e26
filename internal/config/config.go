package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию Mythos Server.
type Config struct {
	// Настройки сервера
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CORS (список разрешенных origins через запятую)
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Настройки AI бэкенда
	AIClientType  string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AITextModel   string        `envconfig:"AI_TEXT_MODEL" default:"gpt-4o-mini"`
	AIImageModel  string        `envconfig:"AI_IMAGE_MODEL" default:"dall-e-3"`
	AISpeechModel string        `envconfig:"AI_SPEECH_MODEL" default:"tts-1"`
	AISpeechVoice string        `envconfig:"AI_SPEECH_VOICE" default:"fable"`
	AITemperature float64       `envconfig:"AI_TEMPERATURE" default:"0.9"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	// Генерация изображений заметно дольше текстовой
	AIImageTimeout time.Duration `envconfig:"AI_IMAGE_TIMEOUT" default:"120s"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string

	// Бюджет токенов на "историю до сих пор" в промптах.
	// При превышении отбрасываются самые старые абзацы.
	StoryTokenBudget int `envconfig:"STORY_TOKEN_BUDGET" default:"6000"`

	// Сессии живут только в памяти; неактивные вычищаются janitor'ом.
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// Ошибка озвучки самовосстанавливается в idle через эту задержку.
	NarrationErrorClearDelay time.Duration `envconfig:"NARRATION_ERROR_CLEAR_DELAY" default:"2s"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации mythos-server: %w", err)
	}

	// Ключ API читаем напрямую, чтобы значение не светилось в логах envconfig
	cfg.AIAPIKey = os.Getenv("AI_API_KEY")

	log.Printf("Конфигурация Mythos Server загружена:")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  AI Client: %s (%s)", cfg.AIClientType, cfg.AIBaseURL)
	log.Printf("  AI Models: text=%s image=%s speech=%s voice=%s", cfg.AITextModel, cfg.AIImageModel, cfg.AISpeechModel, cfg.AISpeechVoice)
	log.Printf("  Story Token Budget: %d", cfg.StoryTokenBudget)
	log.Printf("  Session TTL: %v (sweep %v)", cfg.SessionTTL, cfg.SessionSweepInterval)
	if cfg.AIAPIKey != "" {
		log.Println("  AI API Key: [ЗАГРУЖЕН]")
	}

	return &cfg, nil
}

package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/prometheus/client_golang/prometheus"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"mythos-server/internal/config"
)

// AIClient - интерфейс взаимодействия с генеративным бэкендом.
// Единственный внешний коллаборатор всей системы.
type AIClient interface {
	// GenerateText возвращает свободный текст (ответы Оракула).
	GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error)
	// GenerateJSON требует от модели JSON-объект и декодирует его в out.
	GenerateJSON(ctx context.Context, systemPrompt string, userInput string, out any) error
	// GenerateImage возвращает одно изображение как base64.
	GenerateImage(ctx context.Context, prompt string) (string, error)
	// GenerateSpeech возвращает синтезированную речь: base64 от PCM16LE,
	// моно, 24 кГц (фиксированный формат бэкенда).
	GenerateSpeech(ctx context.Context, text string) (string, error)
}

// --- OpenAI Client Implementation ---

type openAIClient struct {
	client      *openaigo.Client
	logger      *zap.Logger
	textModel   string
	imageModel  string
	speechModel string
	voice       string
	temperature float32
}

func (c *openAIClient) chat(ctx context.Context, capability, systemPrompt, userInput string, format *openaigo.ChatCompletionResponseFormat) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.textModel, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:          c.textModel,
		Messages:       messages,
		Temperature:    c.temperature,
		ResponseFormat: format,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("AI request failed",
			zap.String("capability", capability),
			zap.Duration("duration", duration),
			zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.textModel, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.textModel, "status": "error_empty_response"}).Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.textModel, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"capability": capability, "model": c.textModel}).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"capability": capability, "model": c.textModel}).Observe(float64(resp.Usage.PromptTokens))
		aiCompletionTokens.With(prometheus.Labels{"capability": capability, "model": c.textModel}).Observe(float64(resp.Usage.CompletionTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	return c.chat(ctx, capabilityText, systemPrompt, userInput, nil)
}

func (c *openAIClient) GenerateJSON(ctx context.Context, systemPrompt string, userInput string, out any) error {
	content, err := c.chat(ctx, capabilityJSON, systemPrompt, userInput, &openaigo.ChatCompletionResponseFormat{
		Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(sanitizeJSON(content)), out); err != nil {
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilityJSON, "model": c.textModel, "status": "error_malformed_json"}).Inc()
		return fmt.Errorf("%w: некорректный JSON в ответе: %v", ErrAIGenerationFailed, err)
	}
	return nil
}

func (c *openAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()
	resp, err := c.client.CreateImage(ctx, openaigo.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openaigo.CreateImageSize1024x1024,
		ResponseFormat: openaigo.CreateImageResponseFormatB64JSON,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Image generation failed", zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilityImage, "model": c.imageModel, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilityImage, "model": c.imageModel, "status": "error_empty_response"}).Inc()
		return "", fmt.Errorf("%w: API returned empty data", ErrImageGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"capability": capabilityImage, "model": c.imageModel, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"capability": capabilityImage, "model": c.imageModel}).Observe(duration.Seconds())
	return resp.Data[0].B64JSON, nil
}

func (c *openAIClient) GenerateSpeech(ctx context.Context, text string) (string, error) {
	startTime := time.Now()
	// PCM формат ответа: 24 кГц, 16 бит, little-endian, моно
	resp, err := c.client.CreateSpeech(ctx, openaigo.CreateSpeechRequest{
		Model:          openaigo.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openaigo.SpeechVoice(c.voice),
		ResponseFormat: openaigo.SpeechResponseFormatPcm,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Speech generation failed", zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilitySpeech, "model": c.speechModel, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", ErrSpeechGenerationFailed, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilitySpeech, "model": c.speechModel, "status": "error_read"}).Inc()
		return "", fmt.Errorf("%w: ошибка чтения аудио: %v", ErrSpeechGenerationFailed, err)
	}
	if len(data) == 0 {
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilitySpeech, "model": c.speechModel, "status": "error_empty_response"}).Inc()
		return "", fmt.Errorf("%w: API returned empty data", ErrSpeechGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"capability": capabilitySpeech, "model": c.speechModel, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"capability": capabilitySpeech, "model": c.speechModel}).Observe(duration.Seconds())
	return base64.StdEncoding.EncodeToString(data), nil
}

// --- Ollama Client Implementation ---

// ollamaClient покрывает только текстовые возможности; изображения и речь
// локальная модель не синтезирует.
type ollamaClient struct {
	client      *api.Client
	logger      *zap.Logger
	model       string
	temperature float64
	timeout     time.Duration
}

func newOllamaClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	httpClient := &http.Client{Timeout: cfg.AITimeout}

	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	logger.Info("Ollama client created",
		zap.String("base_url", ollamaBaseURL),
		zap.String("model", cfg.AITextModel))

	return &ollamaClient{
		client:      api.NewClient(parsedURL, httpClient),
		logger:      logger,
		model:       cfg.AITextModel,
		temperature: cfg.AITemperature,
		timeout:     cfg.AITimeout,
	}, nil
}

func (c *ollamaClient) chat(ctx context.Context, capability, systemPrompt, userInput string, format json.RawMessage) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
		Format:   format,
		Options: map[string]interface{}{
			"temperature": c.temperature,
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r // сохраняем последний (полный) ответ
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Ollama request failed",
			zap.String("capability", capability),
			zap.Duration("duration", duration),
			zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.model, "status": "error_empty_response"}).Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"capability": capability, "model": c.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"capability": capability, "model": c.model}).Observe(duration.Seconds())
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		aiPromptTokens.With(prometheus.Labels{"capability": capability, "model": c.model}).Observe(float64(resp.PromptEvalCount))
		aiCompletionTokens.With(prometheus.Labels{"capability": capability, "model": c.model}).Observe(float64(resp.EvalCount))
	}

	return resp.Message.Content, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	return c.chat(ctx, capabilityText, systemPrompt, userInput, nil)
}

func (c *ollamaClient) GenerateJSON(ctx context.Context, systemPrompt string, userInput string, out any) error {
	content, err := c.chat(ctx, capabilityJSON, systemPrompt, userInput, json.RawMessage(`"json"`))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(sanitizeJSON(content)), out); err != nil {
		aiRequestsTotal.With(prometheus.Labels{"capability": capabilityJSON, "model": c.model, "status": "error_malformed_json"}).Inc()
		return fmt.Errorf("%w: некорректный JSON в ответе: %v", ErrAIGenerationFailed, err)
	}
	return nil
}

func (c *ollamaClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("%w: image generation", ErrCapabilityNotSupported)
}

func (c *ollamaClient) GenerateSpeech(ctx context.Context, text string) (string, error) {
	return "", fmt.Errorf("%w: speech synthesis", ErrCapabilityNotSupported)
}

// --- Factory Function ---

// NewAIClient создает клиент AI бэкенда в зависимости от конфигурации.
func NewAIClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AIImageTimeout}
		client := openaigo.NewClientWithConfig(openaiConfig)
		logger.Info("OpenAI client created",
			zap.String("base_url", cfg.AIBaseURL),
			zap.String("text_model", cfg.AITextModel),
			zap.String("image_model", cfg.AIImageModel),
			zap.String("speech_model", cfg.AISpeechModel))
		return &openAIClient{
			client:      client,
			logger:      logger,
			textModel:   cfg.AITextModel,
			imageModel:  cfg.AIImageModel,
			speechModel: cfg.AISpeechModel,
			voice:       cfg.AISpeechVoice,
			temperature: float32(cfg.AITemperature),
		}, nil
	case "ollama":
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.AIClientType)
	}
}

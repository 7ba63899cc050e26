package models

import (
	"fmt"
	"math/rand"
	"time"
)

// StoryBlock - один принятый абзац истории.
// Text неизменяем после создания; мутируется только поле Image
// (при успешной визуализации).
type StoryBlock struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	// Image - опциональная сгенерированная иллюстрация (base64).
	Image string `json:"image,omitempty"`
	// ImagePrompt = true только для блоков, созданных сразу после
	// визуального промпта: картинка "вдохновила" абзац, а не изображает его.
	ImagePrompt bool `json:"imagePrompt,omitempty"`
}

// NewStoryBlockID генерирует уникальный в рамках сессии идентификатор блока.
// Формат: timestamp + случайный суффикс (как в исходном клиенте).
func NewStoryBlockID() string {
	return fmt.Sprintf("%d-%06d", time.Now().UnixMilli(), rand.Intn(1_000_000))
}

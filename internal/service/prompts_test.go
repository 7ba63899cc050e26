package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"mythos-server/internal/models"
	"mythos-server/internal/service"
)

func TestContinuationPrompt(t *testing.T) {
	t.Run("Empty story gets the placeholder", func(t *testing.T) {
		p := service.NewPromptBuilder("test-model", 6000)
		system, user := p.ContinuationPrompt(nil, "Начни историю", nil)

		assert.Contains(t, system, "council of 100 master novelists")
		assert.Contains(t, system, "The story has not yet begun.")
		assert.Contains(t, system, `{"suggestions"`)
		assert.Contains(t, user, "Начни историю")
	})

	t.Run("Story and lore are embedded", func(t *testing.T) {
		p := service.NewPromptBuilder("test-model", 6000)
		story := []string{"Первый абзац.", "Второй абзац."}
		entities := []models.WorldEntity{
			{Name: "Маяк", Description: "Старый маяк", Type: models.EntityTypeLocation},
			{Name: "Смотритель", Description: "Старик", Type: models.EntityTypeCharacter},
		}
		system, _ := p.ContinuationPrompt(story, "Продолжи", entities)

		assert.Contains(t, system, "Первый абзац.")
		assert.Contains(t, system, "Второй абзац.")
		assert.Contains(t, system, "**World Bible:**")
		assert.Contains(t, system, "- Location: Маяк — Старый маяк")
		assert.Contains(t, system, "- Character: Смотритель — Старик")
	})

	t.Run("Oldest paragraphs are trimmed to the budget", func(t *testing.T) {
		// Фоллбек-оценка: len(runes)/4 токена на абзац
		long := strings.Repeat("абзац из многих слов ", 50) // ~250 токенов
		story := []string{"старый " + long, "средний " + long, "новый " + long}

		p := service.NewPromptBuilder("test-model", 300)
		system, _ := p.ContinuationPrompt(story, "Продолжи", nil)

		assert.NotContains(t, system, "старый ")
		assert.Contains(t, system, "новый ")
	})

	t.Run("Last paragraph always survives", func(t *testing.T) {
		long := strings.Repeat("слово ", 200)
		p := service.NewPromptBuilder("test-model", 10)
		system, _ := p.ContinuationPrompt([]string{"первый", "последний " + long}, "Продолжи", nil)

		assert.Contains(t, system, "последний ")
		assert.NotContains(t, system, "первый\n")
	})
}

func TestOraclePrompt(t *testing.T) {
	p := service.NewPromptBuilder("test-model", 6000)
	system, user := p.OraclePrompt("Кто хранит маяк?", []string{"Абзац."}, []models.WorldEntity{
		{Name: "Маяк", Description: "Башня", Type: models.EntityTypeLocation},
	})

	assert.Contains(t, system, "World Oracle")
	assert.Contains(t, system, "Абзац.")
	assert.Contains(t, system, "- Location: Маяк — Башня")
	assert.Equal(t, "Кто хранит маяк?", user)
}

func TestImagePromptPrompt(t *testing.T) {
	p := service.NewPromptBuilder("test-model", 6000)

	system, user := p.ImagePromptPrompt(nil)
	assert.Contains(t, system, "The story has not yet begun.")
	assert.Contains(t, system, `{"prompt"`)
	assert.Empty(t, user)

	system, _ = p.ImagePromptPrompt([]string{"Маяк стоял на скале."})
	assert.Contains(t, system, "Маяк стоял на скале.")
}

func TestEntityDescriptionPrompt(t *testing.T) {
	p := service.NewPromptBuilder("test-model", 6000)
	system, user := p.EntityDescriptionPrompt("Ржавый ключ", models.EntityTypeItem)

	assert.Contains(t, system, `{"description"`)
	assert.Equal(t, `Item: "Ржавый ключ"`, user)
}

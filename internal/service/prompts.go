package service

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"mythos-server/internal/models"
)

// PromptBuilder собирает системные промпты для всех операций, упаковывая
// историю и "Библию мира" в текст запроса. История обрезается по бюджету
// токенов: самые старые абзацы отбрасываются первыми.
type PromptBuilder struct {
	model       string
	tokenBudget int
}

// NewPromptBuilder создает PromptBuilder для модели model с бюджетом токенов
// на блок "история до сих пор".
func NewPromptBuilder(model string, tokenBudget int) *PromptBuilder {
	return &PromptBuilder{model: model, tokenBudget: tokenBudget}
}

// suggestionsResponse - структурированный ответ генерации продолжений.
type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// imagePromptResponse - структурированный ответ генерации визуального промпта.
type imagePromptResponse struct {
	Prompt string `json:"prompt"`
}

// descriptionResponse - структурированный ответ описания сущности.
type descriptionResponse struct {
	Description string `json:"description"`
}

// ContinuationPrompt возвращает системный промпт и пользовательский ввод для
// запроса 3-5 вариантов продолжения. Язык вариантов должен совпадать с
// языком guidance.
func (p *PromptBuilder) ContinuationPrompt(story []string, guidance string, entities []models.WorldEntity) (string, string) {
	var b strings.Builder
	b.WriteString(`You are a creative council of 100 master novelists, each with a unique style. Your goal is to collaboratively help a user write a novel by providing multiple, diverse paths forward.

**Task:**
Based on the story so far, the user's latest input, and the established World Bible, provide 3 to 5 distinctly different and compelling options for the next paragraph. The user's input might be a direct instruction (e.g., "Introduce a dragon") or it may be the most recent paragraph of the story, indicating a request to continue from there. These options should explore different plot directions, character moods, or narrative styles. Stay consistent with the World Bible. Avoid cliches and be creative.

**Language Requirement:**
Analyze the language of the User's Input. ALL your suggestions MUST be in the same language as that input.

`)
	b.WriteString(p.storySoFarSection(story))
	b.WriteString(p.loreSection(entities))
	b.WriteString(`**Output Format:**
You MUST respond with a JSON object of the form {"suggestions": ["...", "..."]} containing 3 to 5 strings. Do not include any other text, explanations, or markdown formatting. The suggestions should be creative and well-written paragraphs.`)

	return b.String(), fmt.Sprintf("User's Input:\n%q", guidance)
}

// ImagePromptPrompt возвращает промпт для генерации одной образной фразы,
// из которой затем рендерится изображение.
func (p *PromptBuilder) ImagePromptPrompt(story []string) (string, string) {
	var b strings.Builder
	b.WriteString(`You are an artist's muse. Distill the story below into a single evocative sentence that would make a breathtaking illustration: a concrete scene, mood, and lighting. If the story has not yet begun, invent an evocative opening scene for a novel.

`)
	b.WriteString(p.storySoFarSection(story))
	b.WriteString(`**Output Format:**
Respond with a JSON object of the form {"prompt": "..."} containing exactly one sentence. No other text.`)

	return b.String(), ""
}

// EntityDescriptionPrompt возвращает промпт генерации описания сущности мира.
func (p *PromptBuilder) EntityDescriptionPrompt(name string, entityType models.EntityType) (string, string) {
	system := `You are a world-building assistant for a novelist. Given the name and kind of an element of their fictional world, write a vivid, story-ready description of 2-4 sentences. Match the language of the name.

**Output Format:**
Respond with a JSON object of the form {"description": "..."}. No other text.`

	return system, fmt.Sprintf("%s: %q", entityType.Label(), name)
}

// OraclePrompt возвращает промпт для вопроса Оракулу, заземленный в текущей
// истории и лоре. Ответ свободным текстом, на языке вопроса.
func (p *PromptBuilder) OraclePrompt(question string, story []string, entities []models.WorldEntity) (string, string) {
	var b strings.Builder
	b.WriteString(`You are the World Oracle: an all-knowing, slightly cryptic keeper of the novel described below. Answer the user's question about this world, grounding every claim in the story so far and the World Bible. Where the records are silent you may extrapolate, but stay consistent with what is established. Answer in the same language as the question. Respond with plain prose, no markdown.

`)
	b.WriteString(p.storySoFarSection(story))
	b.WriteString(p.loreSection(entities))

	return b.String(), question
}

// storySoFarSection форматирует историю (после обрезки по бюджету токенов).
func (p *PromptBuilder) storySoFarSection(story []string) string {
	trimmed := p.trimToBudget(story)
	if len(trimmed) == 0 {
		return "**Story So Far:**\nThe story has not yet begun.\n\n"
	}
	var b strings.Builder
	b.WriteString("**Story So Far:**\n```\n")
	b.WriteString(strings.Join(trimmed, "\n\n"))
	b.WriteString("\n```\n\n")
	return b.String()
}

// loreSection сериализует Библию мира в маркированный список по типам.
func (p *PromptBuilder) loreSection(entities []models.WorldEntity) string {
	if len(entities) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**World Bible:**\n")
	for _, e := range entities {
		b.WriteString(fmt.Sprintf("- %s: %s — %s\n", e.Type.Label(), e.Name, e.Description))
	}
	b.WriteString("\n")
	return b.String()
}

// trimToBudget отбрасывает самые старые абзацы, пока суммарный размер не
// уложится в бюджет токенов. Последний абзац сохраняется всегда.
func (p *PromptBuilder) trimToBudget(story []string) []string {
	if len(story) == 0 || p.tokenBudget <= 0 {
		return story
	}

	total := 0
	counts := make([]int, len(story))
	for i, paragraph := range story {
		counts[i] = p.countTokens(paragraph)
		total += counts[i]
	}
	if total <= p.tokenBudget {
		return story
	}

	start := 0
	for start < len(story)-1 && total > p.tokenBudget {
		total -= counts[start]
		start++
	}
	return story[start:]
}

// countTokens считает токены tiktoken'ом; при недоступности токенизатора
// (незнакомая модель, нет кэша BPE) используется грубая оценка по рунам.
func (p *PromptBuilder) countTokens(text string) int {
	tke, err := tiktoken.EncodingForModel(p.model)
	if err != nil {
		return len([]rune(text)) / 4
	}
	return len(tke.Encode(text, nil, nil))
}

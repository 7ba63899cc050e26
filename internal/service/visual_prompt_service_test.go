package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mythos-server/internal/mocks"
	"mythos-server/internal/models"
	"mythos-server/internal/service"
)

func TestVisualPromptServiceStart(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful chain stores pending image", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		events := collectEvents(mockNotifier, models.EventVisualPromptUpdate)

		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		mockAI.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(unmarshalJSONInto(`{"prompt":"a lighthouse in a storm"}`)).
			Return(nil).Once()
		mockAI.On("GenerateImage", mock.Anything, "a lighthouse in a storm").
			Return("base64-image", nil).Once()

		require.NoError(t, svc.Start(ctx, sess.ID))

		// Синхронная фаза: режим визуального промпта, загрузка
		sess.Lock()
		assert.Equal(t, models.ModeVisualPrompt, sess.Mode)
		assert.True(t, sess.VisualPrompt.Loading)
		sess.Unlock()

		snap := waitSnapshot(t, events)
		assert.False(t, snap.VisualPrompt.Loading)
		assert.Equal(t, "base64-image", snap.VisualPrompt.PendingImage)
		assert.Empty(t, snap.VisualPrompt.Error)
		mockAI.AssertExpectations(t)
	})

	t.Run("First stage failure short-circuits the chain", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		events := collectEvents(mockNotifier, models.EventVisualPromptUpdate)

		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		mockAI.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("backend down")).Once()

		require.NoError(t, svc.Start(ctx, sess.ID))

		snap := waitSnapshot(t, events)
		assert.Equal(t, "Failed to summon inspiration. The cosmos is quiet.", snap.VisualPrompt.Error)
		assert.Empty(t, snap.VisualPrompt.PendingImage)
		// Вторая стадия не должна вызываться
		mockAI.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything)
	})

	t.Run("Second stage failure reports the same combined error", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		events := collectEvents(mockNotifier, models.EventVisualPromptUpdate)

		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		mockAI.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(unmarshalJSONInto(`{"prompt":"a quiet forest"}`)).
			Return(nil).Once()
		mockAI.On("GenerateImage", mock.Anything, "a quiet forest").
			Return("", errors.New("image backend down")).Once()

		require.NoError(t, svc.Start(ctx, sess.ID))

		snap := waitSnapshot(t, events)
		assert.Equal(t, "Failed to summon inspiration. The cosmos is quiet.", snap.VisualPrompt.Error)
		assert.Empty(t, snap.VisualPrompt.PendingImage)
	})
}

func TestVisualPromptServiceSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("Submit returns to writing and keeps pending image", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		events := collectEvents(mockNotifier, models.EventSuggestionsUpdated)

		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		sess.Lock()
		sess.Mode = models.ModeVisualPrompt
		sess.VisualPrompt.PendingImage = "base64-image"
		sess.Unlock()

		mockAI.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(unmarshalJSONInto(`{"suggestions":["от образа к тексту"]}`)).
			Return(nil).Once()

		require.NoError(t, svc.Submit(ctx, sess.ID, "пиши от этого образа"))

		snap := waitSnapshot(t, events)
		assert.Equal(t, models.ModeWriting, snap.Mode)
		// Картинка ждет принятия предложения
		assert.Equal(t, "base64-image", snap.VisualPrompt.PendingImage)
	})

	t.Run("Submit while chain is in flight fails", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		sess.Lock()
		sess.VisualPrompt.Loading = true
		sess.Unlock()

		err := svc.Submit(ctx, sess.ID, "guidance")
		assert.ErrorIs(t, err, service.ErrVisualPromptInFlight)
	})

	t.Run("Empty guidance is rejected", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		err := svc.Submit(ctx, sess.ID, "  ")
		assert.ErrorIs(t, err, service.ErrEmptyGuidance)
	})
}

func TestVisualPromptServiceCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Cancel with story returns to writing", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		mockNotifier.On("Notify", mock.Anything, mock.Anything).Return()
		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		sess.Lock()
		sess.Mode = models.ModeVisualPrompt
		sess.Story = []models.StoryBlock{{ID: "b1", Text: "абзац"}}
		sess.VisualPrompt = models.VisualPromptState{PendingImage: "img", Loading: true}
		sess.Unlock()

		snap, err := svc.Cancel(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ModeWriting, snap.Mode)
		assert.Empty(t, snap.VisualPrompt.PendingImage)
		assert.False(t, snap.VisualPrompt.Loading)
	})

	t.Run("Cancel with empty story returns to initial", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		mockNotifier.On("Notify", mock.Anything, mock.Anything).Return()
		prompts := service.NewPromptBuilder("test-model", 6000)
		suggestions := service.NewSuggestionService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
		svc := service.NewVisualPromptService(repo, mockAI, prompts, suggestions, mockNotifier, zap.NewNop(), time.Second)

		sess.Lock()
		sess.Mode = models.ModeVisualPrompt
		sess.Unlock()

		snap, err := svc.Cancel(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ModeInitial, snap.Mode)
	})
}

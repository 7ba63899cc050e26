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

func TestOracleServiceAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("Question appears immediately, answer follows", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		events := collectEvents(mockNotifier, models.EventOracleUpdated)
		prompts := service.NewPromptBuilder("test-model", 6000)
		svc := service.NewOracleService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)

		mockAI.On("GenerateText", mock.Anything, mock.Anything, "Кто хранит маяк?").
			Return("Старик, забывший собственное имя.", nil).Once()

		snap, err := svc.Ask(ctx, sess.ID, "Кто хранит маяк?")
		require.NoError(t, err)

		// Оптимистичное добавление вопроса
		require.Len(t, snap.OracleLog, 1)
		assert.Equal(t, models.OracleAuthorUser, snap.OracleLog[0].Author)
		assert.Equal(t, "Кто хранит маяк?", snap.OracleLog[0].Text)
		assert.True(t, snap.OracleBusy)

		snap = waitSnapshot(t, events)
		require.Len(t, snap.OracleLog, 2)
		assert.Equal(t, models.OracleAuthorOracle, snap.OracleLog[1].Author)
		assert.Equal(t, "Старик, забывший собственное имя.", snap.OracleLog[1].Text)
		assert.False(t, snap.OracleBusy)
	})

	t.Run("Failure is folded into the transcript", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		events := collectEvents(mockNotifier, models.EventOracleUpdated)
		prompts := service.NewPromptBuilder("test-model", 6000)
		svc := service.NewOracleService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)

		mockAI.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("rate limited")).Once()

		_, err := svc.Ask(ctx, sess.ID, "Вопрос")
		require.NoError(t, err)

		snap := waitSnapshot(t, events)
		require.Len(t, snap.OracleLog, 2)
		assert.Equal(t, models.OracleAuthorOracle, snap.OracleLog[1].Author)
		assert.Equal(t, "The Oracle is silent. rate limited", snap.OracleLog[1].Text)
		assert.False(t, snap.OracleBusy)
	})

	t.Run("Ask while busy is rejected", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		prompts := service.NewPromptBuilder("test-model", 6000)
		svc := service.NewOracleService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)

		sess.Lock()
		sess.OracleLoading = true
		sess.Unlock()

		_, err := svc.Ask(ctx, sess.ID, "Вопрос")
		assert.ErrorIs(t, err, service.ErrOracleBusy)
	})

	t.Run("Empty question is rejected", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		prompts := service.NewPromptBuilder("test-model", 6000)
		svc := service.NewOracleService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)

		_, err := svc.Ask(ctx, sess.ID, "   ")
		assert.ErrorIs(t, err, service.ErrEmptyQuestion)
	})

	t.Run("Transcript returns a copy of the log", func(t *testing.T) {
		repo, sess := newTestSession(t)
		mockAI := mocks.NewMockAIClient(t)
		mockNotifier := mocks.NewMockNotifier(t)
		prompts := service.NewPromptBuilder("test-model", 6000)
		svc := service.NewOracleService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)

		sess.Lock()
		sess.OracleLog = []models.OracleMessage{
			{Author: models.OracleAuthorUser, Text: "Вопрос"},
			{Author: models.OracleAuthorOracle, Text: "Ответ"},
		}
		sess.Unlock()

		log, err := svc.Transcript(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, log, 2)

		log[0].Text = "изменено"
		sess.Lock()
		assert.Equal(t, "Вопрос", sess.OracleLog[0].Text)
		sess.Unlock()
	})
}

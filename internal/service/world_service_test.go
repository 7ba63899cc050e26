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

func newWorldService(t *testing.T) (*service.WorldService, *mocks.MockAIClient, *models.Session) {
	t.Helper()
	repo, sess := newTestSession(t)
	mockAI := mocks.NewMockAIClient(t)
	mockNotifier := mocks.NewMockNotifier(t)
	prompts := service.NewPromptBuilder("test-model", 6000)
	svc := service.NewWorldService(repo, mockAI, prompts, mockNotifier, zap.NewNop(), time.Second)
	return svc, mockAI, sess
}

func TestWorldServiceUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Create appends entity with generated ID", func(t *testing.T) {
		svc, _, sess := newWorldService(t)

		saved, err := svc.Upsert(ctx, sess.ID, service.UpsertEntityInput{
			Name:        "Смотритель",
			Description: "Старик с маяка",
			Type:        models.EntityTypeCharacter,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, models.EntityTypeCharacter, saved.Type)

		entities, err := svc.List(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, saved, entities[0])
	})

	t.Run("Default type is character", func(t *testing.T) {
		svc, _, sess := newWorldService(t)

		saved, err := svc.Upsert(ctx, sess.ID, service.UpsertEntityInput{
			Name:        "Безымянный",
			Description: "Описание",
		})
		require.NoError(t, err)
		assert.Equal(t, models.EntityTypeCharacter, saved.Type)
	})

	t.Run("Update preserves position, type and image", func(t *testing.T) {
		svc, _, sess := newWorldService(t)

		sess.Lock()
		sess.Entities = []models.WorldEntity{
			{ID: "e1", Name: "Маяк", Description: "Старый маяк", Type: models.EntityTypeLocation, Image: "img"},
			{ID: "e2", Name: "Ключ", Description: "Ржавый ключ", Type: models.EntityTypeItem},
		}
		sess.Unlock()

		saved, err := svc.Upsert(ctx, sess.ID, service.UpsertEntityInput{
			ID:          "e1",
			Name:        "Маяк на скале",
			Description: "Обновленное описание",
			// Попытка сменить тип игнорируется
			Type: models.EntityTypeItem,
		})
		require.NoError(t, err)
		assert.Equal(t, models.EntityTypeLocation, saved.Type)
		assert.Equal(t, "img", saved.Image)

		entities, err := svc.List(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, entities, 2)
		// Позиция сохранена
		assert.Equal(t, "e1", entities[0].ID)
		assert.Equal(t, "Маяк на скале", entities[0].Name)
		assert.Equal(t, "e2", entities[1].ID)
	})

	t.Run("Empty name or description is rejected", func(t *testing.T) {
		svc, _, sess := newWorldService(t)

		_, err := svc.Upsert(ctx, sess.ID, service.UpsertEntityInput{Name: " ", Description: "x"})
		assert.ErrorIs(t, err, service.ErrEntityValidation)
		_, err = svc.Upsert(ctx, sess.ID, service.UpsertEntityInput{Name: "x", Description: "  "})
		assert.ErrorIs(t, err, service.ErrEntityValidation)
	})

	t.Run("Unknown type is rejected", func(t *testing.T) {
		svc, _, sess := newWorldService(t)

		_, err := svc.Upsert(ctx, sess.ID, service.UpsertEntityInput{
			Name:        "x",
			Description: "y",
			Type:        models.EntityType("dragon"),
		})
		assert.ErrorIs(t, err, service.ErrEntityValidation)
	})
}

func TestWorldServiceDescribe(t *testing.T) {
	ctx := context.Background()

	t.Run("Describe returns generated description", func(t *testing.T) {
		svc, mockAI, sess := newWorldService(t)

		mockAI.On("GenerateJSON", mock.Anything, mock.Anything, `Location: "Маяк"`, mock.Anything).
			Run(unmarshalJSONInto(`{"description":"Одинокая башня над прибоем."}`)).
			Return(nil).Once()

		description, err := svc.Describe(ctx, sess.ID, "Маяк", models.EntityTypeLocation)
		require.NoError(t, err)
		assert.Equal(t, "Одинокая башня над прибоем.", description)
		mockAI.AssertExpectations(t)
	})

	t.Run("Describe requires a name", func(t *testing.T) {
		svc, mockAI, sess := newWorldService(t)

		_, err := svc.Describe(ctx, sess.ID, "  ", models.EntityTypeCharacter)
		assert.ErrorIs(t, err, service.ErrEntityNameRequired)
		assert.ErrorContains(t, err, service.MsgNameFirst)
		mockAI.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Describe surfaces backend errors", func(t *testing.T) {
		svc, mockAI, sess := newWorldService(t)

		mockAI.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("backend down")).Once()

		_, err := svc.Describe(ctx, sess.ID, "Маяк", models.EntityTypeLocation)
		assert.ErrorIs(t, err, service.ErrAIGenerationFailed)
	})
}

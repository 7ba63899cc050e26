package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mythos-server/internal/models"
	"mythos-server/internal/repository"
)

// WorldService владеет "Библией мира": upsert сущностей и генерация описаний.
// Удаления сущностей в продукте нет - намеренно не добавляем без решения.
type WorldService struct {
	sessions repository.SessionRepository
	ai       AIClient
	prompts  *PromptBuilder
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
}

// NewWorldService создает WorldService.
func NewWorldService(
	sessions repository.SessionRepository,
	ai AIClient,
	prompts *PromptBuilder,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
) *WorldService {
	return &WorldService{
		sessions: sessions,
		ai:       ai,
		prompts:  prompts,
		notifier: notifier,
		logger:   logger.Named("WorldService"),
		timeout:  timeout,
	}
}

// UpsertEntityInput - данные формы сущности.
type UpsertEntityInput struct {
	ID          string
	Name        string
	Description string
	Type        models.EntityType
}

// List возвращает сущности мира в порядке создания.
func (s *WorldService) List(ctx context.Context, sessionID string) ([]models.WorldEntity, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.EntitiesCopy(), nil
}

// Upsert создает сущность или заменяет существующую по ID, сохраняя её
// позицию в списке. Тип и картинка существующей сущности неизменяемы через
// форму: тип фиксируется при создании, картинка - только визуализацией.
func (s *WorldService) Upsert(ctx context.Context, sessionID string, input UpsertEntityInput) (models.WorldEntity, error) {
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if name == "" || description == "" {
		return models.WorldEntity{}, fmt.Errorf("%w: %s", ErrEntityValidation, MsgEntityInvalid)
	}

	entityType := input.Type
	if entityType == "" {
		entityType = models.EntityTypeCharacter
	}
	if !entityType.IsValid() {
		return models.WorldEntity{}, fmt.Errorf("%w: unknown entity type %q", ErrEntityValidation, input.Type)
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.WorldEntity{}, err
	}

	sess.Lock()
	sess.Touch()

	var saved models.WorldEntity
	replaced := false
	if input.ID != "" {
		for i := range sess.Entities {
			if sess.Entities[i].ID == input.ID {
				entities := make([]models.WorldEntity, len(sess.Entities))
				copy(entities, sess.Entities)
				saved = models.WorldEntity{
					ID:          input.ID,
					Name:        name,
					Description: description,
					Type:        entities[i].Type, // тип не редактируется
					Image:       entities[i].Image,
				}
				entities[i] = saved
				sess.Entities = entities
				replaced = true
				break
			}
		}
	}
	if !replaced {
		saved = models.WorldEntity{
			ID:          models.NewWorldEntityID(name),
			Name:        name,
			Description: description,
			Type:        entityType,
		}
		entities := make([]models.WorldEntity, 0, len(sess.Entities)+1)
		entities = append(entities, sess.Entities...)
		entities = append(entities, saved)
		sess.Entities = entities
	}
	sess.Unlock()

	s.logger.Info("World entity saved",
		zap.String("session_id", sessionID),
		zap.String("entity_id", saved.ID),
		zap.String("type", string(saved.Type)),
		zap.Bool("replaced", replaced))
	return saved, nil
}

// Describe генерирует описание сущности по имени и типу ("flesh out with
// AI"). Синхронная операция: форма ждет результат. Требует непустого имени.
func (s *WorldService) Describe(ctx context.Context, sessionID, name string, entityType models.EntityType) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrEntityNameRequired, MsgNameFirst)
	}
	if entityType == "" {
		entityType = models.EntityTypeCharacter
	}
	if !entityType.IsValid() {
		return "", fmt.Errorf("%w: unknown entity type %q", ErrEntityValidation, entityType)
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	sess.Lock()
	sess.Touch()
	sess.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	systemPrompt, userInput := s.prompts.EntityDescriptionPrompt(name, entityType)
	var resp descriptionResponse
	if err := s.ai.GenerateJSON(reqCtx, systemPrompt, userInput, &resp); err != nil {
		s.logger.Warn("Entity description generation failed",
			zap.String("session_id", sessionID),
			zap.String("name", name),
			zap.Error(err))
		if !errors.Is(err, ErrAIGenerationFailed) {
			err = fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
		}
		return "", err
	}
	if strings.TrimSpace(resp.Description) == "" {
		return "", fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}
	return resp.Description, nil
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// EntityType - тип сущности Мира. Фиксируется при создании и не редактируется.
type EntityType string

const (
	EntityTypeCharacter EntityType = "character"
	EntityTypeLocation  EntityType = "location"
	EntityTypeItem      EntityType = "item"
)

// IsValid проверяет, что тип сущности известен.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeCharacter, EntityTypeLocation, EntityTypeItem:
		return true
	}
	return false
}

// Label возвращает человекочитаемую метку типа для лора и промптов.
func (t EntityType) Label() string {
	switch t {
	case EntityTypeCharacter:
		return "Character"
	case EntityTypeLocation:
		return "Location"
	case EntityTypeItem:
		return "Item"
	}
	return string(t)
}

// WorldEntity - запись "Библии мира": персонаж, локация или предмет.
type WorldEntity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        EntityType `json:"type"`
	Image       string     `json:"image,omitempty"`
}

// NewWorldEntityID генерирует идентификатор сущности: timestamp + суффикс из имени.
// Пространство ID сущностей не пересекается с ID блоков истории.
func NewWorldEntityID(name string) string {
	suffix := strings.Map(func(r rune) rune {
		if r == ' ' {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mythos-server/internal/models"
	"mythos-server/internal/service"
)

func (h *MythosHandler) listEntities(c *gin.Context) {
	entities, err := h.worldService.List(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

func (h *MythosHandler) upsertEntity(c *gin.Context) {
	var req upsertEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	entity, err := h.worldService.Upsert(c.Request.Context(), c.Param("session_id"), service.UpsertEntityInput{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Type:        models.EntityType(req.Type),
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (h *MythosHandler) describeEntity(c *gin.Context) {
	var req describeEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	description, err := h.worldService.Describe(c.Request.Context(), c.Param("session_id"), req.Name, models.EntityType(req.Type))
	if err != nil {
		// Сбой бэкенда на этом пути синхронный: форма показывает сообщение
		// оркестратора, а не сырой текст ошибки.
		if errors.Is(err, service.ErrAIGenerationFailed) {
			c.JSON(http.StatusBadGateway, ErrorResponse{Code: errCodeUpstream, Message: service.MsgDescriptionFailed})
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, describeEntityResponse{Description: description})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Асинхронные операции отвечают 202 и промежуточным слепком состояния
// (loading=true); результат доезжает событием по WebSocket.

func (h *MythosHandler) generateSuggestions(c *gin.Context) {
	var req guidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	sessionID := c.Param("session_id")
	if err := h.suggestionService.Generate(c.Request.Context(), sessionID, req.Guidance); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

func (h *MythosHandler) regenerateSuggestions(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.suggestionService.Regenerate(c.Request.Context(), sessionID); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

func (h *MythosHandler) acceptSuggestion(c *gin.Context) {
	var req acceptSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	sessionID := c.Param("session_id")
	if _, err := h.suggestionService.Accept(c.Request.Context(), sessionID, req.Suggestion); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *MythosHandler) startVisualPrompt(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.visualPromptService.Start(c.Request.Context(), sessionID); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

func (h *MythosHandler) submitVisualPrompt(c *gin.Context) {
	var req guidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	sessionID := c.Param("session_id")
	if err := h.visualPromptService.Submit(c.Request.Context(), sessionID, req.Guidance); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

func (h *MythosHandler) cancelVisualPrompt(c *gin.Context) {
	snap, err := h.visualPromptService.Cancel(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

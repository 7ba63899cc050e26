package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *MythosHandler) visualize(c *gin.Context) {
	var req visualizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	sessionID := c.Param("session_id")
	if err := h.visualizationSvc.Visualize(c.Request.Context(), sessionID, req.ContentID, req.Text); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

func (h *MythosHandler) regenerateVisualization(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.visualizationSvc.Regenerate(c.Request.Context(), sessionID); err != nil {
		handleServiceError(c, err)
		return
	}
	h.snapshot(c, sessionID, http.StatusAccepted)
}

func (h *MythosHandler) viewVisualization(c *gin.Context) {
	var req viewVisualizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	snap, err := h.visualizationSvc.View(c.Request.Context(), c.Param("session_id"), req.BlockID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *MythosHandler) closeVisualization(c *gin.Context) {
	snap, err := h.visualizationSvc.Close(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mythos-server/internal/models"
)

func (h *MythosHandler) createSession(c *gin.Context) {
	snap, err := h.sessionService.Create(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *MythosHandler) getSession(c *gin.Context) {
	snap, err := h.sessionService.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *MythosHandler) resetSession(c *gin.Context) {
	snap, err := h.sessionService.Reset(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *MythosHandler) selectTab(c *gin.Context) {
	var req selectTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	snap, err := h.sessionService.SelectTab(c.Request.Context(), c.Param("session_id"), models.Tab(req.Tab))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *MythosHandler) askOracle(c *gin.Context) {
	var req oracleAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	snap, err := h.oracleService.Ask(c.Request.Context(), c.Param("session_id"), req.Question)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}

func (h *MythosHandler) oracleTranscript(c *gin.Context) {
	log, err := h.oracleService.Transcript(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": log})
}

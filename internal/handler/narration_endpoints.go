package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mythos-server/internal/audio"
)

func (h *MythosHandler) narrate(c *gin.Context) {
	var req narrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	snap, err := h.narrationService.Narrate(c.Request.Context(), c.Param("session_id"), req.BlockID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}

// narrationAudio отдает сырой PCM16 буфер текущей озвучки. Параметры потока
// фиксированы контрактом синтеза и продублированы в заголовках.
func (h *MythosHandler) narrationAudio(c *gin.Context) {
	blockID, buf, err := h.narrationService.Audio(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("X-Block-ID", blockID)
	c.Header("X-Sample-Rate", strconv.Itoa(buf.SampleRate))
	c.Header("X-Channels", strconv.Itoa(audio.Channels))
	c.Data(http.StatusOK, "audio/pcm", buf.Raw)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mythos-server/internal/repository"
	"mythos-server/internal/service"
)

// ErrorResponse - единый формат ошибки API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeNotFound    = "NOT_FOUND"
	errCodeValidation  = "VALIDATION"
	errCodeConflict    = "CONFLICT"
	errCodeUpstream    = "AI_UNAVAILABLE"
	errCodeUnsupported = "UNSUPPORTED"
	errCodeInternal    = "INTERNAL"
)

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: errCodeNotFound, Message: "Session not found"}
	case errors.Is(err, service.ErrStoryBlockNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: errCodeNotFound, Message: "Story block not found"}
	case errors.Is(err, service.ErrNoActiveNarration):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: errCodeNotFound, Message: "No active narration"}
	case errors.Is(err, service.ErrEmptyGuidance),
		errors.Is(err, service.ErrEmptySuggestion),
		errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, service.ErrInvalidTab),
		errors.Is(err, service.ErrEntityNameRequired),
		errors.Is(err, service.ErrEntityValidation):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: errCodeValidation, Message: err.Error()}
	case errors.Is(err, service.ErrGenerationInFlight),
		errors.Is(err, service.ErrVisualPromptInFlight),
		errors.Is(err, service.ErrOracleBusy),
		errors.Is(err, service.ErrNoLastGuidance),
		errors.Is(err, service.ErrViewerNotOpen),
		errors.Is(err, service.ErrTabUnavailable):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: errCodeConflict, Message: err.Error()}
	case errors.Is(err, service.ErrAIGenerationFailed),
		errors.Is(err, service.ErrImageGenerationFailed),
		errors.Is(err, service.ErrSpeechGenerationFailed):
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: errCodeUpstream, Message: err.Error()}
	case errors.Is(err, service.ErrCapabilityNotSupported):
		statusCode = http.StatusNotImplemented
		errResp = ErrorResponse{Code: errCodeUnsupported, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: errCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

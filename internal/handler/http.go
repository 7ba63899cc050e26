package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mythos-server/internal/service"
)

// MythosHandler - HTTP-поверхность сервера соавторства. Все маршруты
// оперируют одной сессией, идентифицируемой в пути.
type MythosHandler struct {
	sessionService      *service.SessionService
	suggestionService   *service.SuggestionService
	visualizationSvc    *service.VisualizationService
	visualPromptService *service.VisualPromptService
	worldService        *service.WorldService
	narrationService    *service.NarrationService
	oracleService       *service.OracleService
	wsManager           *ConnectionManager
	logger              *zap.Logger
}

// NewMythosHandler создает MythosHandler.
func NewMythosHandler(
	sessionService *service.SessionService,
	suggestionService *service.SuggestionService,
	visualizationSvc *service.VisualizationService,
	visualPromptService *service.VisualPromptService,
	worldService *service.WorldService,
	narrationService *service.NarrationService,
	oracleService *service.OracleService,
	wsManager *ConnectionManager,
	logger *zap.Logger,
) *MythosHandler {
	return &MythosHandler{
		sessionService:      sessionService,
		suggestionService:   suggestionService,
		visualizationSvc:    visualizationSvc,
		visualPromptService: visualPromptService,
		worldService:        worldService,
		narrationService:    narrationService,
		oracleService:       oracleService,
		wsManager:           wsManager,
		logger:              logger.Named("MythosHandler"),
	}
}

// RegisterRoutes регистрирует все маршруты сервера.
func (h *MythosHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessions := router.Group("/api/sessions")
	{
		sessions.POST("", h.createSession)

		sess := sessions.Group("/:session_id")
		{
			sess.GET("", h.getSession)
			sess.POST("/reset", h.resetSession)
			sess.POST("/tabs", h.selectTab)
			sess.GET("/ws", h.serveWS)

			sess.POST("/suggestions/generate", h.generateSuggestions)
			sess.POST("/suggestions/regenerate", h.regenerateSuggestions)
			sess.POST("/suggestions/accept", h.acceptSuggestion)

			sess.POST("/visualize", h.visualize)
			sess.POST("/visualize/regenerate", h.regenerateVisualization)
			sess.POST("/visualize/view", h.viewVisualization)
			sess.POST("/visualize/close", h.closeVisualization)

			sess.POST("/visual-prompt/start", h.startVisualPrompt)
			sess.POST("/visual-prompt/submit", h.submitVisualPrompt)
			sess.POST("/visual-prompt/cancel", h.cancelVisualPrompt)

			sess.GET("/entities", h.listEntities)
			sess.POST("/entities", h.upsertEntity)
			sess.POST("/entities/describe", h.describeEntity)

			sess.POST("/narrate", h.narrate)
			sess.GET("/narration/audio", h.narrationAudio)

			sess.POST("/oracle/ask", h.askOracle)
			sess.GET("/oracle/transcript", h.oracleTranscript)
		}
	}
}

// snapshot возвращает актуальный слепок сессии для ответа на мутирующий
// запрос (асинхронные операции отвечают промежуточным состоянием с loading).
func (h *MythosHandler) snapshot(c *gin.Context, sessionID string, status int) {
	snap, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(status, snap)
}

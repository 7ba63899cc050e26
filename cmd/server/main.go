package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	ginprometheus "github.com/zsais/go-gin-prometheus"

	"mythos-server/internal/config"
	"mythos-server/internal/handler"
	"mythos-server/internal/logger"
	"mythos-server/internal/middleware"
	"mythos-server/internal/repository"
	"mythos-server/internal/service"
)

func main() {
	// --- Configuration ---
	// .env опционален: в контейнере конфигурация приходит окружением
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- AI Backend ---
	aiClient, err := service.NewAIClient(cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to initialize AI client", zap.Error(err))
	}

	// --- Dependency Injection ---
	sessionRepo := repository.NewMemorySessionRepository(cfg.SessionTTL, cfg.SessionSweepInterval, log.Named("SessionRepo"))
	defer sessionRepo.Stop()

	promptBuilder := service.NewPromptBuilder(cfg.AITextModel, cfg.StoryTokenBudget)
	wsManager := handler.NewConnectionManager(log)

	suggestionSvc := service.NewSuggestionService(sessionRepo, aiClient, promptBuilder, wsManager, log, cfg.AITimeout)
	visualizationSvc := service.NewVisualizationService(sessionRepo, aiClient, wsManager, log, cfg.AIImageTimeout)
	visualPromptSvc := service.NewVisualPromptService(sessionRepo, aiClient, promptBuilder, suggestionSvc, wsManager, log, cfg.AIImageTimeout)
	worldSvc := service.NewWorldService(sessionRepo, aiClient, promptBuilder, wsManager, log, cfg.AITimeout)
	narrationSvc := service.NewNarrationService(sessionRepo, aiClient, wsManager, log, cfg.AITimeout, cfg.NarrationErrorClearDelay)
	oracleSvc := service.NewOracleService(sessionRepo, aiClient, promptBuilder, wsManager, log, cfg.AITimeout)
	sessionSvc := service.NewSessionService(sessionRepo, narrationSvc, wsManager, log)

	// Вычищаемые по TTL сессии должны освободить ресурсы озвучки
	sessionRepo.SetOnEvict(narrationSvc.Stop)

	mythosHandler := handler.NewMythosHandler(
		sessionSvc,
		suggestionSvc,
		visualizationSvc,
		visualPromptSvc,
		worldSvc,
		narrationSvc,
		oracleSvc,
		wsManager,
		log,
	)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLoggingMiddleware(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	mythosHandler.RegisterRoutes(router)

	// Prometheus middleware применяется после регистрации роутов
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Асинхронные операции отвечают сразу; долгие AI запросы живут в фоне
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/adapters/llm"
	"github.com/clinicopilot/server/adapters/mongo"
	"github.com/clinicopilot/server/domain/repositories"
	"github.com/clinicopilot/server/internal/api"
	"github.com/clinicopilot/server/internal/auth"
	"github.com/clinicopilot/server/internal/config"
	"github.com/clinicopilot/server/internal/encryption"
	"github.com/clinicopilot/server/internal/relay"
	"github.com/clinicopilot/server/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be configured")
	}

	// Storage
	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB client", zap.Error(err))
		}
	}()

	users := mongo.NewUserRepository(mongoClient.Database)
	appointments := mongo.NewAppointmentRepository(mongoClient.Database)
	templates := mongo.NewTemplateRepository(mongoClient.Database)
	refreshTokens := mongo.NewRefreshTokenRepository(mongoClient.Database)
	settings := mongo.NewSettingsRepository(mongoClient.Database)
	transcripts := mongo.NewTranscriptStore(appointments)

	// Live transcription relay
	broadcaster := relay.NewBroadcaster(logger)
	relayManager := relay.NewManager(relay.RecognizerConfig{
		URL:                 cfg.RecognizerURL,
		APIKey:              cfg.RecognizerAPIKey,
		Model:               cfg.RecognizerModel,
		Encoding:            cfg.RecognizerEncoding,
		SampleRate:          cfg.RecognizerSampleRate,
		Channels:            cfg.RecognizerChannels,
		SmartFormat:         cfg.RecognizerSmartFormat,
		KeepAliveInterval:   cfg.KeepAliveInterval,
		MaxPendingFragments: cfg.MaxPendingFragments,
	}, nil, transcripts, broadcaster, logger)

	// Note drafting
	drafter, err := newDrafter(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize draft provider", zap.Error(err))
	}
	notes := usecase.NewNoteService(appointments, templates, drafter, logger)

	server := api.NewServer(api.ServerParams{
		Logger:        logger,
		Users:         users,
		Appointments:  appointments,
		Templates:     templates,
		RefreshTokens: refreshTokens,
		Settings:      settings,
		Issuer:        auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret),
		Cipher:        encryption.New(cfg.EncryptionKey),
		RelayManager:  relayManager,
		Broadcaster:   broadcaster,
		Transcripts:   transcripts,
		Notes:         notes,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server.RegisterRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("draft_provider", cfg.DraftProvider),
		zap.Bool("recognizer_enabled", cfg.RecognizerAPIKey != ""))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newDrafter(cfg *config.Config, logger *zap.Logger) (repositories.Drafter, error) {
	switch cfg.DraftProvider {
	case "gemini":
		return llm.NewGeminiDrafter(context.Background(), cfg.GeminiKey, cfg.GeminiModel, logger)
	default:
		return llm.NewOpenAIDrafter(cfg.OpenAIKey, cfg.OpenAIModel, logger)
	}
}

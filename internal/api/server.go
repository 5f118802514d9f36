package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/domain/repositories"
	"github.com/clinicopilot/server/internal/auth"
	"github.com/clinicopilot/server/internal/encryption"
	"github.com/clinicopilot/server/internal/relay"
	"github.com/clinicopilot/server/usecase"
)

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	logger *zap.Logger

	users         repositories.UserRepository
	appointments  repositories.AppointmentRepository
	templates     repositories.TemplateRepository
	refreshTokens repositories.RefreshTokenRepository
	settings      repositories.SettingsRepository

	issuer *auth.TokenIssuer
	cipher *encryption.Cipher

	relayManager *relay.Manager
	broadcaster  *relay.Broadcaster
	transcripts  relay.TranscriptStore

	notes *usecase.NoteService
}

// ServerParams collects the Server dependencies.
type ServerParams struct {
	Logger        *zap.Logger
	Users         repositories.UserRepository
	Appointments  repositories.AppointmentRepository
	Templates     repositories.TemplateRepository
	RefreshTokens repositories.RefreshTokenRepository
	Settings      repositories.SettingsRepository
	Issuer        *auth.TokenIssuer
	Cipher        *encryption.Cipher
	RelayManager  *relay.Manager
	Broadcaster   *relay.Broadcaster
	Transcripts   relay.TranscriptStore
	Notes         *usecase.NoteService
}

// NewServer creates a new API server
func NewServer(p ServerParams) *Server {
	return &Server{
		logger:        p.Logger,
		users:         p.Users,
		appointments:  p.Appointments,
		templates:     p.Templates,
		refreshTokens: p.RefreshTokens,
		settings:      p.Settings,
		issuer:        p.Issuer,
		cipher:        p.Cipher,
		relayManager:  p.RelayManager,
		broadcaster:   p.Broadcaster,
		transcripts:   p.Transcripts,
		notes:         p.Notes,
	}
}

// RegisterRoutes initializes all API routes
func (s *Server) RegisterRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "clinicopilot-server",
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)
	authGroup.POST("/logout", s.logout)

	required := auth.Required(s.issuer, s.users, s.logger)

	users := v1.Group("/users", required)
	users.GET("/me", s.getProfile)
	users.PUT("/me", s.updateProfile)

	appointments := v1.Group("/appointments", required)
	appointments.GET("", s.listAppointments)
	appointments.POST("", s.createAppointment)
	appointments.GET("/:id", s.getAppointment)
	appointments.PUT("/:id", s.updateAppointment)
	appointments.DELETE("/:id", s.deleteAppointment)
	appointments.PATCH("/:id/status", s.updateAppointmentStatus)

	appointments.POST("/:id/treatment/prompt", s.addPrompt(usecase.DocumentTreatmentNote))
	appointments.DELETE("/:id/treatment/prompt/:promptId", s.deletePrompt(usecase.DocumentTreatmentNote))
	appointments.POST("/:id/letter/prompt", s.addPrompt(usecase.DocumentLetter))
	appointments.DELETE("/:id/letter/prompt/:promptId", s.deletePrompt(usecase.DocumentLetter))

	// Audio fragments can be a few seconds of opus each; anything bigger is
	// a client bug.
	appointments.POST("/:id/transcription/audio", s.ingestAudio, middleware.BodyLimit("10M"))
	appointments.GET("/:id/transcription/stream", s.streamTranscription)
	appointments.GET("/:id/transcription", s.listTranscription)

	appointments.POST("/:id/treatment/generate", s.generate(usecase.DocumentTreatmentNote))
	appointments.POST("/:id/letter/generate", s.generate(usecase.DocumentLetter))
	appointments.POST("/:id/summary/generate", s.generate(usecase.DocumentSummary))

	templates := v1.Group("/templates", required)
	templates.GET("", s.listTemplates)
	templates.POST("", s.createTemplate)
	templates.GET("/:id", s.getTemplate)
	templates.PUT("/:id", s.updateTemplate)
	templates.DELETE("/:id", s.deleteTemplate)

	settings := v1.Group("/settings", required)
	settings.GET("", s.getSettings)
	settings.PUT("", s.updateSettings)

	patients := v1.Group("/patients", required)
	patients.GET("/:id", s.getPatient)
}

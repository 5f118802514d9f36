package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/adapters/cliniko"
	"github.com/clinicopilot/server/adapters/mongo"
	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/internal/auth"
)

func (s *Server) getSettings(c echo.Context) error {
	user := auth.CurrentUser(c)

	settings, err := s.settings.Get(c.Request().Context(), user.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return c.JSON(http.StatusOK, SettingsResponse{})
		}
		s.logger.Error("Failed to get settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load settings",
		})
	}

	return c.JSON(http.StatusOK, SettingsResponse{
		HasAPIKey:      settings.APIKey != "",
		APIRegion:      settings.APIRegion,
		BusinessID:     settings.BusinessID,
		PractitionerID: settings.PractitionerID,
	})
}

func (s *Server) updateSettings(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	ctx := c.Request().Context()
	settings, err := s.settings.Get(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNotFound) {
			s.logger.Error("Failed to load settings", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to save settings",
			})
		}
		settings = &entities.UserSettings{UserID: user.ID}
	}

	if key := strings.TrimSpace(req.APIKey); key != "" {
		encrypted, err := s.cipher.Encrypt(key)
		if err != nil {
			s.logger.Error("Failed to encrypt API key", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to save settings",
			})
		}
		settings.APIKey = encrypted
		settings.APIRegion = cliniko.ShardFromAPIKey(key)
	}
	if req.BusinessID != "" {
		settings.BusinessID = req.BusinessID
	}
	if req.PractitionerID != "" {
		settings.PractitionerID = req.PractitionerID
	}

	if err := s.settings.Upsert(ctx, settings); err != nil {
		s.logger.Error("Failed to save settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to save settings",
		})
	}

	return c.JSON(http.StatusOK, SettingsResponse{
		HasAPIKey:      settings.APIKey != "",
		APIRegion:      settings.APIRegion,
		BusinessID:     settings.BusinessID,
		PractitionerID: settings.PractitionerID,
	})
}

// getPatient proxies a patient record lookup to the practice management
// system using the caller's stored API key.
func (s *Server) getPatient(c echo.Context) error {
	user := auth.CurrentUser(c)

	ctx := c.Request().Context()
	settings, err := s.settings.Get(ctx, user.ID)
	if err != nil || settings.APIKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "integration_not_configured",
			Message: "No practice management API key configured",
		})
	}

	apiKey := s.cipher.Decrypt(settings.APIKey)
	client := cliniko.NewClient(apiKey, s.logger)

	patient, err := client.GetPatient(ctx, c.Param("id"))
	if err != nil {
		s.logger.Warn("Patient lookup failed",
			zap.String("patient_id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "Failed to fetch patient record",
		})
	}
	return c.JSON(http.StatusOK, patient)
}

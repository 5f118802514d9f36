package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/internal/auth"
)

func (s *Server) getProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.CurrentUser(c))
}

func (s *Server) updateProfile(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	user := *auth.CurrentUser(c)
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Profession != nil {
		user.Profession = entities.Profession(*req.Profession)
	}
	if req.KeyTerms != nil {
		user.KeyTerms = req.KeyTerms
	}
	if err := user.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}

	if err := s.users.Update(c.Request().Context(), &user); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to update profile",
		})
	}
	return c.JSON(http.StatusOK, &user)
}

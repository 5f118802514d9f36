package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/adapters/mongo"
	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/internal/auth"
)

func (s *Server) listTemplates(c echo.Context) error {
	user := auth.CurrentUser(c)

	templates, err := s.templates.ListByUser(c.Request().Context(), user.ID)
	if err != nil {
		s.logger.Error("Failed to list templates", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list templates",
		})
	}
	return c.JSON(http.StatusOK, templates)
}

func (s *Server) createTemplate(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req TemplateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	template := &entities.Template{
		UserID:  user.ID,
		Name:    req.Name,
		Type:    entities.TemplateType(req.Type),
		Content: req.Content,
	}
	if err := template.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}
	if err := s.templates.Create(c.Request().Context(), template); err != nil {
		s.logger.Error("Failed to create template", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create template",
		})
	}
	return c.JSON(http.StatusCreated, template)
}

func (s *Server) getTemplate(c echo.Context) error {
	user := auth.CurrentUser(c)

	template, err := s.templates.GetByID(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return s.templateError(c, err, "Failed to get template")
	}
	return c.JSON(http.StatusOK, template)
}

func (s *Server) updateTemplate(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req TemplateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	template := &entities.Template{
		ID:      c.Param("id"),
		UserID:  user.ID,
		Name:    req.Name,
		Type:    entities.TemplateType(req.Type),
		Content: req.Content,
	}
	if err := template.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}
	if err := s.templates.Update(c.Request().Context(), template); err != nil {
		return s.templateError(c, err, "Failed to update template")
	}
	return c.JSON(http.StatusOK, template)
}

func (s *Server) deleteTemplate(c echo.Context) error {
	user := auth.CurrentUser(c)

	if err := s.templates.Delete(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return s.templateError(c, err, "Failed to delete template")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) templateError(c echo.Context, err error, message string) error {
	if errors.Is(err, mongo.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Template not found",
		})
	}
	s.logger.Error(message, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/adapters/mongo"
	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
	"github.com/clinicopilot/server/internal/auth"
	"github.com/clinicopilot/server/usecase"
)

func (s *Server) listAppointments(c echo.Context) error {
	user := auth.CurrentUser(c)

	filter := repositories.AppointmentFilter{
		UserID:     user.ID,
		Status:     entities.AppointmentStatus(c.QueryParam("status")),
		BusinessID: c.QueryParam("business_id"),
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if raw := c.QueryParam("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "date must be formatted YYYY-MM-DD",
			})
		}
		filter.Date = &date
	}

	appointments, total, err := s.appointments.List(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error("Failed to list appointments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list appointments",
		})
	}

	return c.JSON(http.StatusOK, AppointmentListResponse{
		Appointments: appointments,
		Total:        total,
		Page:         filter.Page,
		Limit:        filter.Limit,
	})
}

func (s *Server) createAppointment(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	appointment := &entities.Appointment{
		AppointmentID:   req.AppointmentID,
		UserID:          user.ID,
		Status:          entities.AppointmentStatusPending,
		AppointmentDate: req.AppointmentDate,
		BusinessID:      req.BusinessID,
		PatientInfo:     req.PatientInfo,
		ReferralContact: req.ReferralContact,
	}
	if appointment.AppointmentID == "" {
		appointment.AppointmentID = uuid.NewString()
	}

	if err := s.appointments.Create(c.Request().Context(), appointment); err != nil {
		s.logger.Error("Failed to create appointment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create appointment",
		})
	}
	return c.JSON(http.StatusCreated, appointment)
}

func (s *Server) getAppointment(c echo.Context) error {
	user := auth.CurrentUser(c)

	appointment, err := s.appointments.GetByAppointmentID(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return s.appointmentError(c, err, "Failed to get appointment")
	}
	return c.JSON(http.StatusOK, appointment)
}

func (s *Server) updateAppointment(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	ctx := c.Request().Context()
	appointment, err := s.appointments.GetByAppointmentID(ctx, c.Param("id"), user.ID)
	if err != nil {
		return s.appointmentError(c, err, "Failed to update appointment")
	}

	appointment.AppointmentDate = req.AppointmentDate
	appointment.BusinessID = req.BusinessID
	appointment.PatientInfo = req.PatientInfo
	appointment.ReferralContact = req.ReferralContact

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return s.appointmentError(c, err, "Failed to update appointment")
	}
	return c.JSON(http.StatusOK, appointment)
}

func (s *Server) deleteAppointment(c echo.Context) error {
	user := auth.CurrentUser(c)

	if err := s.appointments.Delete(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return s.appointmentError(c, err, "Failed to delete appointment")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) updateAppointmentStatus(c echo.Context) error {
	user := auth.CurrentUser(c)

	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	status := entities.AppointmentStatus(req.Status)
	switch status {
	case entities.AppointmentStatusPending, entities.AppointmentStatusRecorded, entities.AppointmentStatusCompleted:
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Unknown appointment status",
		})
	}

	if err := s.appointments.UpdateStatus(c.Request().Context(), c.Param("id"), user.ID, status); err != nil {
		return s.appointmentError(c, err, "Failed to update appointment status")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) addPrompt(kind usecase.DocumentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.CurrentUser(c)

		section, ok := usecase.SectionForKind(kind)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "This document kind does not take additional prompts",
			})
		}

		var req PromptRequest
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Prompt content is required",
			})
		}

		prompt := entities.Prompt{
			ID:      uuid.NewString(),
			Content: strings.TrimSpace(req.Content),
		}
		if err := s.appointments.AddPrompt(c.Request().Context(), c.Param("id"), user.ID, section, prompt); err != nil {
			return s.appointmentError(c, err, "Failed to add prompt")
		}
		return c.JSON(http.StatusCreated, prompt)
	}
}

func (s *Server) deletePrompt(kind usecase.DocumentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.CurrentUser(c)

		section, ok := usecase.SectionForKind(kind)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "This document kind does not take additional prompts",
			})
		}

		if err := s.appointments.DeletePrompt(c.Request().Context(), c.Param("id"), user.ID, section, c.Param("promptId")); err != nil {
			return s.appointmentError(c, err, "Failed to delete prompt")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) appointmentError(c echo.Context, err error, message string) error {
	if errors.Is(err, mongo.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Appointment not found",
		})
	}
	s.logger.Error(message, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/adapters/mongo"
	"github.com/clinicopilot/server/internal/auth"
	"github.com/clinicopilot/server/internal/metrics"
	"github.com/clinicopilot/server/usecase"
)

type deltaFrame struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
}

// generate drafts one document kind and streams model deltas to the
// requesting tab as server-sent events.
func (s *Server) generate(kind usecase.DocumentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.CurrentUser(c)

		var req GenerateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request format",
			})
		}

		ctx := c.Request().Context()
		deltas, errs, err := s.notes.GenerateStream(ctx, usecase.GenerateRequest{
			UserID:        user.ID,
			AppointmentID: c.Param("id"),
			TemplateID:    req.TemplateID,
			Kind:          kind,
		})
		if err != nil {
			return s.generateError(c, err)
		}

		metrics.Default.DraftsStarted.Inc()

		header := c.Response().Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set(echo.HeaderCacheControl, "no-cache")
		header.Set(echo.HeaderConnection, "keep-alive")
		c.Response().WriteHeader(http.StatusOK)

		write := func(frame deltaFrame) error {
			data, err := json.Marshal(frame)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
				return err
			}
			c.Response().Flush()
			return nil
		}

		for delta := range deltas {
			if err := write(deltaFrame{Type: "delta", Delta: delta}); err != nil {
				// Client went away; drain the producer and stop.
				for range deltas {
				}
				<-errs
				return nil
			}
		}
		if streamErr := <-errs; streamErr != nil {
			metrics.Default.DraftsFailed.Inc()
			s.logger.Error("Document draft failed",
				zap.String("kind", string(kind)), zap.Error(streamErr))
			_ = write(deltaFrame{Type: "error"})
			return nil
		}

		_ = write(deltaFrame{Type: "done"})
		return nil
	}
}

func (s *Server) generateError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrNoTranscript):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "no_transcript",
			Message: "No transcript text available for this appointment",
		})
	case errors.Is(err, usecase.ErrTemplateRequired):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "template_required",
			Message: "A template with content is required for this document",
		})
	case errors.Is(err, mongo.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Appointment or template not found",
		})
	default:
		s.logger.Error("Failed to start document draft", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate document",
		})
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/internal/auth"
	"github.com/clinicopilot/server/internal/relay"
)

// ingestAudio accepts one audio fragment and hands it to the relay. The
// response does not wait for recognition; delivery is observed on the stream.
func (s *Server) ingestAudio(c echo.Context) error {
	user := auth.CurrentUser(c)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read audio payload",
		})
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_payload",
			Message: "Audio payload is empty",
		})
	}

	key := relay.Key{UserID: user.ID, AppointmentID: c.Param("id")}
	if err := s.relayManager.SubmitAudio(c.Request().Context(), key, body); err != nil {
		if errors.Is(err, relay.ErrEmptyFragment) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "empty_payload",
				Message: "Audio payload is empty",
			})
		}
		s.logger.Error("Failed to submit audio fragment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process audio",
		})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// listTranscription returns the persisted transcript for an appointment.
func (s *Server) listTranscription(c echo.Context) error {
	user := auth.CurrentUser(c)

	segments, err := s.transcripts.ListAll(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		s.logger.Error("Failed to list transcript", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load transcript",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"transcriptions": segments})
}

// sseViewerBuffer is the per-viewer event queue depth. A browser tab that
// stops reading fills it and is dropped on the next push.
const sseViewerBuffer = 256

// sseViewer writes relay events to one event stream response. Send only
// enqueues; the handler goroutine drains the queue onto the network, so a
// stalled viewer never blocks the publishing side.
type sseViewer struct {
	response *echo.Response
	events   chan relay.Event

	done      chan struct{}
	closeOnce sync.Once
}

func newSSEViewer(response *echo.Response) *sseViewer {
	return &sseViewer{
		response: response,
		events:   make(chan relay.Event, sseViewerBuffer),
		done:     make(chan struct{}),
	}
}

func (v *sseViewer) Send(event relay.Event) error {
	select {
	case <-v.done:
		return errors.New("viewer stream closed")
	default:
	}
	select {
	case v.events <- event:
		return nil
	default:
		return errors.New("viewer not reading, event queue full")
	}
}

// write marshals and flushes one frame. Called only from the handler
// goroutine.
func (v *sseViewer) write(event relay.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(v.response, "data: %s\n\n", data); err != nil {
		return err
	}
	v.response.Flush()
	return nil
}

// serve drains queued events onto the response until the request context ends
// or a write fails.
func (v *sseViewer) serve(ctx context.Context) {
	defer v.close()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-v.events:
			if err := v.write(event); err != nil {
				return
			}
		}
	}
}

func (v *sseViewer) close() {
	v.closeOnce.Do(func() { close(v.done) })
}

// streamTranscription attaches a viewer to an appointment's live transcript.
// The viewer is registered before history replays, so a segment landing in
// that window can be delivered twice; viewers render duplicates harmlessly.
func (s *Server) streamTranscription(c echo.Context) error {
	user := auth.CurrentUser(c)
	key := relay.Key{UserID: user.ID, AppointmentID: c.Param("id")}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set(echo.HeaderCacheControl, "no-cache")
	header.Set(echo.HeaderConnection, "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	viewer := newSSEViewer(c.Response())
	s.broadcaster.Subscribe(key, viewer)
	defer s.broadcaster.Unsubscribe(key, viewer)

	ctx := c.Request().Context()
	history, err := s.transcripts.ListAll(ctx, key.UserID, key.AppointmentID)
	if err != nil {
		// Replay is best-effort; the viewer still gets live segments.
		s.logger.Error("Failed to replay transcript history",
			zap.String("appointment_id", key.AppointmentID), zap.Error(err))
	}
	for _, segment := range history {
		if err := viewer.write(relay.ChunkEvent(segment)); err != nil {
			return nil
		}
	}

	s.logger.Info("Viewer attached",
		zap.String("appointment_id", key.AppointmentID),
		zap.Int("replayed", len(history)))

	viewer.serve(ctx)
	return nil
}

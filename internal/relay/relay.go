// Package relay implements the live transcription relay: it accepts audio
// fragments posted by browser clients, forwards them over a per-session
// websocket to the external speech recognizer, and fans finalized transcript
// segments out to every viewer attached to the same session.
package relay

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyFragment is returned when a zero-length audio fragment is submitted.
var ErrEmptyFragment = errors.New("relay: empty audio fragment")

// Key identifies one live transcription session. At most one upstream
// recognizer connection and one viewer set exist per key at any time.
type Key struct {
	UserID        string
	AppointmentID string
}

// Segment is a finalized transcript segment. Segments are append-only:
// the store only ever adds them to an appointment's transcript list.
type Segment struct {
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Event is the frame pushed to viewers for each broadcast segment.
type Event struct {
	Type  string  `json:"type"`
	Chunk Segment `json:"chunk"`
}

// ChunkEvent wraps a segment in the wire frame viewers expect.
func ChunkEvent(seg Segment) Event {
	return Event{Type: "chunk", Chunk: seg}
}

// TranscriptStore persists finalized segments on the appointment record.
// Append failures are logged by the relay and never close a session.
type TranscriptStore interface {
	Append(ctx context.Context, userID, appointmentID string, segment Segment) error
	ListAll(ctx context.Context, userID, appointmentID string) ([]Segment, error)
}

package mongo

import (
	"context"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
	"github.com/clinicopilot/server/internal/relay"
)

// TranscriptStore adapts the appointment repository to the relay's
// persistence interface.
type TranscriptStore struct {
	appointments repositories.AppointmentRepository
}

// NewTranscriptStore creates a transcript store backed by the appointment
// collection.
func NewTranscriptStore(appointments repositories.AppointmentRepository) *TranscriptStore {
	return &TranscriptStore{appointments: appointments}
}

// Append implements relay.TranscriptStore
func (s *TranscriptStore) Append(ctx context.Context, userID, appointmentID string, segment relay.Segment) error {
	return s.appointments.AppendTranscript(ctx, appointmentID, userID, entities.TranscriptSegment{
		Text:      segment.Text,
		Timestamp: segment.Timestamp,
	})
}

// ListAll implements relay.TranscriptStore
func (s *TranscriptStore) ListAll(ctx context.Context, userID, appointmentID string) ([]relay.Segment, error) {
	stored, err := s.appointments.ListTranscript(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}
	segments := make([]relay.Segment, 0, len(stored))
	for _, seg := range stored {
		segments = append(segments, relay.Segment{Text: seg.Text, Timestamp: seg.Timestamp})
	}
	return segments, nil
}

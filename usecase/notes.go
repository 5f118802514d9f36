package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clinicopilot/server/domain/repositories"
)

// DocumentKind names the document types the service can draft.
type DocumentKind string

const (
	DocumentTreatmentNote DocumentKind = "treatment"
	DocumentLetter        DocumentKind = "letter"
	DocumentSummary       DocumentKind = "summary"
)

var (
	// ErrNoTranscript means the appointment has no finalized transcript yet.
	ErrNoTranscript = errors.New("no transcript text available for this appointment")

	// ErrTemplateRequired means the requested document kind needs a template
	// with content.
	ErrTemplateRequired = errors.New("template content is required for this document")

	// ErrUnknownDocumentKind means the requested kind is not drafted here.
	ErrUnknownDocumentKind = errors.New("unknown document kind")
)

// GenerateRequest identifies what to draft and from which appointment.
type GenerateRequest struct {
	UserID        string
	AppointmentID string
	TemplateID    string
	Kind          DocumentKind
}

// NoteService drafts clinical documents from appointment transcripts.
type NoteService struct {
	appointments repositories.AppointmentRepository
	templates    repositories.TemplateRepository
	drafter      repositories.Drafter
	logger       *zap.Logger
}

// NewNoteService creates a new note drafting service
func NewNoteService(
	appointments repositories.AppointmentRepository,
	templates repositories.TemplateRepository,
	drafter repositories.Drafter,
	logger *zap.Logger,
) *NoteService {
	return &NoteService{
		appointments: appointments,
		templates:    templates,
		drafter:      drafter,
		logger:       logger,
	}
}

// Generate drafts the document in one call.
func (s *NoteService) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	draft, err := s.prepare(ctx, req)
	if err != nil {
		return "", err
	}
	return s.drafter.Draft(ctx, draft)
}

// GenerateStream drafts the document incrementally. Validation failures are
// returned synchronously; the channels follow the Drafter contract.
func (s *NoteService) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan string, <-chan error, error) {
	draft, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Starting document draft",
		zap.String("appointment_id", req.AppointmentID),
		zap.String("kind", string(req.Kind)))

	deltas, errs := s.drafter.DraftStream(ctx, draft)
	return deltas, errs, nil
}

// prepare loads the appointment and template, validates the inputs, and
// builds the provider prompts.
func (s *NoteService) prepare(ctx context.Context, req GenerateRequest) (repositories.DraftRequest, error) {
	var zero repositories.DraftRequest

	appointment, err := s.appointments.GetByAppointmentID(ctx, req.AppointmentID, req.UserID)
	if err != nil {
		return zero, fmt.Errorf("failed to load appointment: %w", err)
	}

	transcript := appointment.TranscriptText()
	if strings.TrimSpace(transcript) == "" {
		return zero, ErrNoTranscript
	}

	templateHTML, err := s.templateContent(ctx, req)
	if err != nil {
		return zero, err
	}

	switch req.Kind {
	case DocumentTreatmentNote:
		if strings.TrimSpace(templateHTML) == "" {
			return zero, ErrTemplateRequired
		}
		return buildTreatmentPrompts(appointment, templateHTML, transcript), nil
	case DocumentLetter:
		if strings.TrimSpace(templateHTML) == "" {
			return zero, ErrTemplateRequired
		}
		return buildLetterPrompts(appointment, templateHTML, transcript), nil
	case DocumentSummary:
		// Summaries fall back to a default structure without a template.
		return buildSummaryPrompts(appointment, templateHTML, transcript), nil
	default:
		return zero, ErrUnknownDocumentKind
	}
}

func (s *NoteService) templateContent(ctx context.Context, req GenerateRequest) (string, error) {
	if req.TemplateID == "" {
		return "", nil
	}
	template, err := s.templates.GetByID(ctx, req.TemplateID, req.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load template: %w", err)
	}
	return template.Content, nil
}

// SectionForKind maps a document kind to the appointment section holding its
// additional prompts. Summaries carry none.
func SectionForKind(kind DocumentKind) (string, bool) {
	switch kind {
	case DocumentTreatmentNote:
		return "treatment_note", true
	case DocumentLetter:
		return "letter", true
	default:
		return "", false
	}
}

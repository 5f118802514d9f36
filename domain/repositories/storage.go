package repositories

import (
	"context"
	"time"

	"github.com/clinicopilot/server/domain/entities"
)

// UserRepository defines data access methods for clinician accounts.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	UserID        string
	Status        entities.AppointmentStatus
	AppointmentID string
	Date          *time.Time
	BusinessID    string
	Page          int
	Limit         int
}

// AppointmentRepository defines data access methods for appointments,
// including the append-only transcript list.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entities.Appointment) error
	GetByAppointmentID(ctx context.Context, appointmentID, userID string) (*entities.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, int64, error)
	Update(ctx context.Context, appointment *entities.Appointment) error
	UpdateStatus(ctx context.Context, appointmentID, userID string, status entities.AppointmentStatus) error
	Delete(ctx context.Context, appointmentID, userID string) error

	AddPrompt(ctx context.Context, appointmentID, userID, section string, prompt entities.Prompt) error
	DeletePrompt(ctx context.Context, appointmentID, userID, section, promptID string) error

	// AppendTranscript pushes one finalized segment and stamps the
	// appointment's recording time.
	AppendTranscript(ctx context.Context, appointmentID, userID string, segment entities.TranscriptSegment) error
	ListTranscript(ctx context.Context, appointmentID, userID string) ([]entities.TranscriptSegment, error)
}

// TemplateRepository defines data access methods for note templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *entities.Template) error
	GetByID(ctx context.Context, id, userID string) (*entities.Template, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.Template, error)
	Update(ctx context.Context, template *entities.Template) error
	Delete(ctx context.Context, id, userID string) error
}

// RefreshTokenRepository persists rotating refresh tokens.
type RefreshTokenRepository interface {
	// Replace deletes any existing token for the user and stores the new one.
	Replace(ctx context.Context, token *entities.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*entities.RefreshToken, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// SettingsRepository persists per-user integration settings.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*entities.UserSettings, error)
	Upsert(ctx context.Context, settings *entities.UserSettings) error
}

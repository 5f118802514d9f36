package api

import (
	"time"

	"github.com/clinicopilot/server/domain/entities"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RegisterRequest represents the payload for account registration
type RegisterRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Profession string `json:"profession"`
}

// LoginRequest represents the payload for credential login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the rotating refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned by login, register and refresh
type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         *entities.User `json:"user"`
}

// ProfileRequest updates the clinician profile. Nil fields are left
// untouched.
type ProfileRequest struct {
	FirstName  *string  `json:"first_name,omitempty"`
	LastName   *string  `json:"last_name,omitempty"`
	Profession *string  `json:"profession,omitempty"`
	KeyTerms   []string `json:"key_terms,omitempty"`
}

// AppointmentRequest is the mutable subset of an appointment accepted from
// clients.
type AppointmentRequest struct {
	AppointmentID   string                   `json:"appointment_id"`
	AppointmentDate *time.Time               `json:"appointment_date,omitempty"`
	BusinessID      string                   `json:"business_id,omitempty"`
	PatientInfo     entities.PatientInfo     `json:"patient_info,omitempty"`
	ReferralContact entities.ReferralContact `json:"referral_contact,omitempty"`
}

// AppointmentListResponse wraps a paginated appointment listing
type AppointmentListResponse struct {
	Appointments []*entities.Appointment `json:"appointments"`
	Total        int64                   `json:"total"`
	Page         int                     `json:"page"`
	Limit        int                     `json:"limit"`
}

// StatusRequest updates an appointment's workflow status
type StatusRequest struct {
	Status string `json:"status"`
}

// PromptRequest adds one additional instruction to a note section
type PromptRequest struct {
	Content string `json:"content"`
}

// TemplateRequest is the mutable subset of a template accepted from clients
type TemplateRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// GenerateRequest selects the template used for document drafting
type GenerateRequest struct {
	TemplateID string `json:"template_id"`
}

// SettingsRequest updates the practice management integration settings
type SettingsRequest struct {
	APIKey         string `json:"api_key,omitempty"`
	BusinessID     string `json:"business_id,omitempty"`
	PractitionerID string `json:"practitioner_id,omitempty"`
}

// SettingsResponse returns integration settings with the API key masked
type SettingsResponse struct {
	HasAPIKey      bool   `json:"has_api_key"`
	APIRegion      string `json:"api_region,omitempty"`
	BusinessID     string `json:"business_id,omitempty"`
	PractitionerID string `json:"practitioner_id,omitempty"`
}

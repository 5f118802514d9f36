package entities

import (
	"errors"
	"time"
)

// AppointmentStatus tracks an appointment through documentation workflow.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusRecorded  AppointmentStatus = "recorded"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Address is a postal address embedded in patient and referral records.
type Address struct {
	Line1      string `json:"line1,omitempty" bson:"line1,omitempty"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// PatientInfo is the patient snapshot attached to an appointment, sourced
// from the practice management system.
type PatientInfo struct {
	ID          string  `json:"id,omitempty" bson:"id,omitempty"`
	Name        string  `json:"name,omitempty" bson:"name,omitempty"`
	FirstName   string  `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty" bson:"last_name,omitempty"`
	DateOfBirth string  `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
	Sex         string  `json:"sex,omitempty" bson:"sex,omitempty"`
	Email       string  `json:"email,omitempty" bson:"email,omitempty"`
	MobilePhone string  `json:"mobile_phone,omitempty" bson:"mobile_phone,omitempty"`
	HomePhone   string  `json:"home_phone,omitempty" bson:"home_phone,omitempty"`
	WorkPhone   string  `json:"work_phone,omitempty" bson:"work_phone,omitempty"`
	Address     Address `json:"address,omitempty" bson:"address,omitempty"`
}

// ReferralContact is the referring practitioner attached to an appointment.
type ReferralContact struct {
	ID          string  `json:"id,omitempty" bson:"id,omitempty"`
	FirstName   string  `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty" bson:"last_name,omitempty"`
	FullName    string  `json:"full_name,omitempty" bson:"full_name,omitempty"`
	Email       string  `json:"email,omitempty" bson:"email,omitempty"`
	MobilePhone string  `json:"mobile_phone,omitempty" bson:"mobile_phone,omitempty"`
	HomePhone   string  `json:"home_phone,omitempty" bson:"home_phone,omitempty"`
	WorkPhone   string  `json:"work_phone,omitempty" bson:"work_phone,omitempty"`
	CompanyName string  `json:"company_name,omitempty" bson:"company_name,omitempty"`
	Title       string  `json:"title,omitempty" bson:"title,omitempty"`
	Address     Address `json:"address,omitempty" bson:"address,omitempty"`
}

// Prompt is one additional instruction attached to a note or letter.
type Prompt struct {
	ID      string `json:"id" bson:"id"`
	Content string `json:"content" bson:"content"`
}

// TranscriptSegment is one finalized transcript chunk. The list on an
// appointment is append-only.
type TranscriptSegment struct {
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NoteSection groups the additional prompts for one generated document kind.
type NoteSection struct {
	AdditionalPrompts []Prompt `json:"additional_prompts" bson:"additional_prompts"`
}

// Appointment is one patient visit and everything documented against it.
type Appointment struct {
	ID              string              `json:"id" bson:"_id,omitempty"`
	AppointmentID   string              `json:"appointment_id" bson:"appointment_id"`
	UserID          string              `json:"user_id" bson:"user_id"`
	Status          AppointmentStatus   `json:"status" bson:"status"`
	AppointmentDate *time.Time          `json:"appointment_date,omitempty" bson:"appointment_date,omitempty"`
	RecordedAt      *time.Time          `json:"recorded_at,omitempty" bson:"recorded_at,omitempty"`
	BusinessID      string              `json:"business_id,omitempty" bson:"business_id,omitempty"`
	PatientInfo     PatientInfo         `json:"patient_info" bson:"patient_info"`
	ReferralContact ReferralContact     `json:"referral_contact" bson:"referral_contact"`
	Transcriptions  []TranscriptSegment `json:"transcriptions" bson:"transcriptions"`
	TreatmentNote   NoteSection         `json:"treatment_note" bson:"treatment_note"`
	Letter          NoteSection         `json:"letter" bson:"letter"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}

func (a *Appointment) Validate() error {
	if a.AppointmentID == "" {
		return errors.New("appointment id is required")
	}
	if a.UserID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// TranscriptText joins all finalized segments into the chronological text
// used as generation input.
func (a *Appointment) TranscriptText() string {
	if len(a.Transcriptions) == 0 {
		return ""
	}
	text := a.Transcriptions[0].Text
	for _, seg := range a.Transcriptions[1:] {
		text += " " + seg.Text
	}
	return text
}

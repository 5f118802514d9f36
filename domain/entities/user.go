package entities

import (
	"errors"
	"strings"
	"time"
)

// Profession is the clinician's registered profession.
type Profession string

const (
	ProfessionGeneralPractitioner   Profession = "General Practitioner"
	ProfessionNurse                 Profession = "Nurse"
	ProfessionPhysicianAssistant    Profession = "Physician Assistant"
	ProfessionPhysiotherapist       Profession = "Physiotherapist"
	ProfessionOccupationalTherapist Profession = "Occupational Therapist"
	ProfessionPsychologist          Profession = "Psychologist"
	ProfessionPsychiatrist          Profession = "Psychiatrist"
	ProfessionDentist               Profession = "Dentist"
	ProfessionOptometrist           Profession = "Optometrist"
	ProfessionPharmacist            Profession = "Pharmacist"
	ProfessionMidwife               Profession = "Midwife"
	ProfessionParamedic             Profession = "Paramedic"
)

// Professions lists every accepted profession value.
var Professions = []Profession{
	ProfessionGeneralPractitioner,
	ProfessionNurse,
	ProfessionPhysicianAssistant,
	ProfessionPhysiotherapist,
	ProfessionOccupationalTherapist,
	ProfessionPsychologist,
	ProfessionPsychiatrist,
	ProfessionDentist,
	ProfessionOptometrist,
	ProfessionPharmacist,
	ProfessionMidwife,
	ProfessionParamedic,
}

// User represents a clinician account.
type User struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	FirstName    string     `json:"first_name" bson:"first_name"`
	LastName     string     `json:"last_name" bson:"last_name"`
	Email        string     `json:"email" bson:"email"`
	PasswordHash string     `json:"-" bson:"password_hash"`
	Profession   Profession `json:"profession" bson:"profession"`
	KeyTerms     []string   `json:"key_terms,omitempty" bson:"key_terms,omitempty"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" {
		return errors.New("first and last name are required")
	}
	for _, p := range Professions {
		if u.Profession == p {
			return nil
		}
	}
	return errors.New("unknown profession")
}

// FullName joins the clinician's first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

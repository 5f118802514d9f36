package entities

import (
	"errors"
	"strings"
	"time"
)

// TemplateType distinguishes the document kinds a template can produce.
type TemplateType string

const (
	TemplateTypeTreatmentNote  TemplateType = "Treatment note"
	TemplateTypeLetter         TemplateType = "Letter"
	TemplateTypePatientSummary TemplateType = "Patient summary"
)

// TemplateTypes lists every accepted template type.
var TemplateTypes = []TemplateType{
	TemplateTypeTreatmentNote,
	TemplateTypeLetter,
	TemplateTypePatientSummary,
}

// Template is a user-owned HTML skeleton that generated documents follow.
type Template struct {
	ID        string       `json:"id" bson:"_id,omitempty"`
	UserID    string       `json:"user_id" bson:"user_id"`
	Name      string       `json:"name" bson:"name"`
	Type      TemplateType `json:"type" bson:"type"`
	Content   string       `json:"content" bson:"content"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
}

func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("template name is required")
	}
	if t.UserID == "" {
		return errors.New("user id is required")
	}
	for _, tt := range TemplateTypes {
		if t.Type == tt {
			return nil
		}
	}
	return errors.New("unknown template type")
}

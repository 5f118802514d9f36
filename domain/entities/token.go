package entities

import "time"

// RefreshToken is a persisted, rotating refresh credential. At most one
// exists per user; issuing a new one replaces the old.
type RefreshToken struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Token     string    `json:"token" bson:"token"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// UserSettings holds per-user practice management integration settings. The
// API key is stored encrypted.
type UserSettings struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	UserID         string    `json:"user_id" bson:"user_id"`
	APIKey         string    `json:"-" bson:"api_key"`
	APIRegion      string    `json:"api_region,omitempty" bson:"api_region,omitempty"`
	BusinessID     string    `json:"business_id,omitempty" bson:"business_id,omitempty"`
	PractitionerID string    `json:"practitioner_id,omitempty" bson:"practitioner_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

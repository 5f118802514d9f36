package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
)

type SettingsRepository struct {
	collection *mongo.Collection
}

// NewSettingsRepository creates a new MongoDB settings repository
func NewSettingsRepository(db *mongo.Database) repositories.SettingsRepository {
	return &SettingsRepository{
		collection: db.Collection("user_settings"),
	}
}

// Get implements repositories.SettingsRepository
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*entities.UserSettings, error) {
	var settings entities.UserSettings
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings for user %s: %w", userID, err)
	}
	return &settings, nil
}

// Upsert implements repositories.SettingsRepository
func (r *SettingsRepository) Upsert(ctx context.Context, settings *entities.UserSettings) error {
	if settings == nil || settings.UserID == "" {
		return errors.New("settings user id is required")
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"api_key":         settings.APIKey,
			"api_region":      settings.APIRegion,
			"business_id":     settings.BusinessID,
			"practitioner_id": settings.PractitionerID,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"user_id":    settings.UserID,
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"user_id": settings.UserID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	settings.UpdatedAt = now
	return nil
}

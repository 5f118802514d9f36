package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
)

type TemplateRepository struct {
	collection *mongo.Collection
}

// NewTemplateRepository creates a new MongoDB template repository
func NewTemplateRepository(db *mongo.Database) repositories.TemplateRepository {
	return &TemplateRepository{
		collection: db.Collection("templates"),
	}
}

// Create implements repositories.TemplateRepository
func (r *TemplateRepository) Create(ctx context.Context, template *entities.Template) error {
	if template == nil {
		return errors.New("template cannot be nil")
	}
	if err := template.Validate(); err != nil {
		return err
	}

	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now

	doc := bson.M{
		"user_id":    template.UserID,
		"name":       template.Name,
		"type":       template.Type,
		"content":    template.Content,
		"created_at": template.CreatedAt,
		"updated_at": template.UpdatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		template.ID = oid.Hex()
	}
	return nil
}

// GetByID implements repositories.TemplateRepository
func (r *TemplateRepository) GetByID(ctx context.Context, id, userID string) (*entities.Template, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid template id format: %w", err)
	}

	var template entities.Template
	err = r.collection.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	return &template, nil
}

// ListByUser implements repositories.TemplateRepository
func (r *TemplateRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []*entities.Template
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	return templates, nil
}

// Update implements repositories.TemplateRepository
func (r *TemplateRepository) Update(ctx context.Context, template *entities.Template) error {
	if template == nil || template.ID == "" {
		return errors.New("template id is required")
	}
	if err := template.Validate(); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(template.ID)
	if err != nil {
		return fmt.Errorf("invalid template id format: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"name":       template.Name,
			"type":       template.Type,
			"content":    template.Content,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "user_id": template.UserID}, update)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements repositories.TemplateRepository
func (r *TemplateRepository) Delete(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid template id format: %w", err)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

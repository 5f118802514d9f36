package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
)

type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new MongoDB user repository
func NewUserRepository(db *mongo.Database) repositories.UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// Create implements repositories.UserRepository
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	now := time.Now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	doc := bson.M{
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"profession":    user.Profession,
		"key_terms":     user.KeyTerms,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	return nil
}

// GetByID implements repositories.UserRepository
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id format: %w", err)
	}

	var user entities.User
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}

// GetByEmail implements repositories.UserRepository
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// Update implements repositories.UserRepository
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	if user == nil || user.ID == "" {
		return errors.New("user id is required")
	}
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return fmt.Errorf("invalid user id format: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"profession": user.Profession,
			"key_terms":  user.KeyTerms,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

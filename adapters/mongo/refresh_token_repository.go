package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
)

type RefreshTokenRepository struct {
	collection *mongo.Collection
}

// NewRefreshTokenRepository creates a new MongoDB refresh token repository
func NewRefreshTokenRepository(db *mongo.Database) repositories.RefreshTokenRepository {
	return &RefreshTokenRepository{
		collection: db.Collection("refresh_tokens"),
	}
}

// Replace implements repositories.RefreshTokenRepository. Rotation keeps at
// most one token per user.
func (r *RefreshTokenRepository) Replace(ctx context.Context, token *entities.RefreshToken) error {
	if token == nil || token.UserID == "" {
		return errors.New("refresh token user id is required")
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	if _, err := r.collection.DeleteMany(ctx, bson.M{"user_id": token.UserID}); err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	doc := bson.M{
		"user_id":    token.UserID,
		"token":      token.Token,
		"created_at": token.CreatedAt,
		"expires_at": token.ExpiresAt,
	}
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		token.ID = oid.Hex()
	}
	return nil
}

// GetByToken implements repositories.RefreshTokenRepository
func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*entities.RefreshToken, error) {
	var stored entities.RefreshToken
	err := r.collection.FindOne(ctx, bson.M{"token": token}).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return &stored, nil
}

// DeleteByUserID implements repositories.RefreshTokenRepository
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	return nil
}

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

// ErrNotFound is returned when a document does not exist or belongs to
// another user.
var ErrNotFound = errors.New("document not found")

type AppointmentRepository struct {
	collection *mongo.Collection
}

// NewAppointmentRepository creates a new MongoDB appointment repository
func NewAppointmentRepository(db *mongo.Database) repositories.AppointmentRepository {
	return &AppointmentRepository{
		collection: db.Collection("appointments"),
	}
}

// scope restricts every operation to one user's document.
func scope(appointmentID, userID string) bson.M {
	return bson.M{"appointment_id": appointmentID, "user_id": userID}
}

// Create implements repositories.AppointmentRepository
func (r *AppointmentRepository) Create(ctx context.Context, appointment *entities.Appointment) error {
	if appointment == nil {
		return errors.New("appointment cannot be nil")
	}
	if err := appointment.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now
	if appointment.Status == "" {
		appointment.Status = entities.AppointmentStatusPending
	}

	doc := bson.M{
		"appointment_id":   appointment.AppointmentID,
		"user_id":          appointment.UserID,
		"status":           appointment.Status,
		"appointment_date": appointment.AppointmentDate,
		"business_id":      appointment.BusinessID,
		"patient_info":     appointment.PatientInfo,
		"referral_contact": appointment.ReferralContact,
		"transcriptions":   appointment.Transcriptions,
		"treatment_note":   appointment.TreatmentNote,
		"letter":           appointment.Letter,
		"created_at":       appointment.CreatedAt,
		"updated_at":       appointment.UpdatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appointment.ID = oid.Hex()
	}
	return nil
}

// GetByAppointmentID implements repositories.AppointmentRepository
func (r *AppointmentRepository) GetByAppointmentID(ctx context.Context, appointmentID, userID string) (*entities.Appointment, error) {
	var appointment entities.Appointment
	err := r.collection.FindOne(ctx, scope(appointmentID, userID)).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment %s: %w", appointmentID, err)
	}
	return &appointment, nil
}

// List implements repositories.AppointmentRepository
func (r *AppointmentRepository) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, int64, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AppointmentID != "" {
		query["appointment_id"] = filter.AppointmentID
	}
	if filter.BusinessID != "" {
		query["business_id"] = filter.BusinessID
	}
	if filter.Date != nil {
		dayStart := filter.Date.Truncate(24 * time.Hour)
		query["appointment_date"] = bson.M{
			"$gte": dayStart,
			"$lt":  dayStart.Add(24 * time.Hour),
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "appointment_date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*entities.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, 0, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, total, nil
}

// Update implements repositories.AppointmentRepository
func (r *AppointmentRepository) Update(ctx context.Context, appointment *entities.Appointment) error {
	if appointment == nil {
		return errors.New("appointment cannot be nil")
	}

	update := bson.M{
		"$set": bson.M{
			"status":           appointment.Status,
			"appointment_date": appointment.AppointmentDate,
			"business_id":      appointment.BusinessID,
			"patient_info":     appointment.PatientInfo,
			"referral_contact": appointment.ReferralContact,
			"updated_at":       time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, scope(appointment.AppointmentID, appointment.UserID), update)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus implements repositories.AppointmentRepository
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, appointmentID, userID string, status entities.AppointmentStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, scope(appointmentID, userID), update)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements repositories.AppointmentRepository
func (r *AppointmentRepository) Delete(ctx context.Context, appointmentID, userID string) error {
	result, err := r.collection.DeleteOne(ctx, scope(appointmentID, userID))
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPrompt implements repositories.AppointmentRepository. Section is
// "treatment_note" or "letter".
func (r *AppointmentRepository) AddPrompt(ctx context.Context, appointmentID, userID, section string, prompt entities.Prompt) error {
	update := bson.M{
		"$push": bson.M{section + ".additional_prompts": prompt},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, scope(appointmentID, userID), update)
	if err != nil {
		return fmt.Errorf("failed to add prompt: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePrompt implements repositories.AppointmentRepository
func (r *AppointmentRepository) DeletePrompt(ctx context.Context, appointmentID, userID, section, promptID string) error {
	update := bson.M{
		"$pull": bson.M{section + ".additional_prompts": bson.M{"id": promptID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, scope(appointmentID, userID), update)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTranscript implements repositories.AppointmentRepository
func (r *AppointmentRepository) AppendTranscript(ctx context.Context, appointmentID, userID string, segment entities.TranscriptSegment) error {
	update := bson.M{
		"$push": bson.M{"transcriptions": segment},
		"$set":  bson.M{"recorded_at": time.Now(), "updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, scope(appointmentID, userID), update)
	if err != nil {
		return fmt.Errorf("failed to append transcript segment: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTranscript implements repositories.AppointmentRepository
func (r *AppointmentRepository) ListTranscript(ctx context.Context, appointmentID, userID string) ([]entities.TranscriptSegment, error) {
	opts := options.FindOne().SetProjection(bson.M{"transcriptions": 1})

	var doc struct {
		Transcriptions []entities.TranscriptSegment `bson:"transcriptions"`
	}
	err := r.collection.FindOne(ctx, scope(appointmentID, userID), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list transcript: %w", err)
	}
	return doc.Transcriptions, nil
}

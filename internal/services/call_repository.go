package services

import (
	"context"
	"errors"
	"fmt"

	"monobase/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CallRepository persists video calls. Update must only succeed when the
// stored version equals call.Version, and bumps it on success.
type CallRepository interface {
	Create(ctx context.Context, call *models.VideoCall) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.VideoCall, error)
	FindByBooking(ctx context.Context, bookingID string) ([]models.VideoCall, error)
	Update(ctx context.Context, call *models.VideoCall) error
}

const callsCollection = "video_calls"

type mongoCallRepository struct {
	collection *mongo.Collection
}

func NewMongoCallRepository(db *mongo.Database) CallRepository {
	return &mongoCallRepository{collection: db.Collection(callsCollection)}
}

func (r *mongoCallRepository) Create(ctx context.Context, call *models.VideoCall) error {
	result, err := r.collection.InsertOne(ctx, call)
	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		call.ID = id
	}
	return nil
}

func (r *mongoCallRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.VideoCall, error) {
	var call models.VideoCall
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&call)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}
	return &call, nil
}

func (r *mongoCallRepository) FindByBooking(ctx context.Context, bookingID string) ([]models.VideoCall, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer cursor.Close(ctx)

	var calls []models.VideoCall
	if err = cursor.All(ctx, &calls); err != nil {
		return nil, fmt.Errorf("failed to decode calls: %w", err)
	}
	return calls, nil
}

func (r *mongoCallRepository) Update(ctx context.Context, call *models.VideoCall) error {
	expected := call.Version
	call.Version++

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": call.ID, "version": expected}, call)
	if err != nil {
		call.Version = expected
		return fmt.Errorf("failed to update call: %w", err)
	}
	if result.MatchedCount == 0 {
		call.Version = expected
		return ErrConcurrentUpdate
	}
	return nil
}

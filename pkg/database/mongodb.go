// ==============================================
// pkg/database/mongodb.go
// ==============================================
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"monobase/internal/config"
	"monobase/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// VideoCallsCollection holds one document per call.
const VideoCallsCollection = "video_calls"

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// ErrNotInitialized is returned before InitMongoDB succeeded.
var ErrNotInitialized = errors.New("database not initialized")

// InitMongoDB initializes MongoDB connection
func InitMongoDB(cfg config.MongoConfig) error {
	var err error

	once.Do(func() {
		err = connectToMongoDB(cfg)
	})

	return err
}

// connectToMongoDB establishes connection to MongoDB
func connectToMongoDB(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(30 * time.Minute).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)

	logger.WithField("database", cfg.Database).Info("Connected to MongoDB")

	if err := EnsureIndexes(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to create indexes")
	}

	return nil
}

// GetDatabase returns the database instance, or nil before InitMongoDB.
func GetDatabase() *mongo.Database {
	return database
}

// Disconnect closes MongoDB connection
func Disconnect() error {
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	}
	return nil
}

// HealthCheck pings the primary.
func HealthCheck(ctx context.Context) error {
	if client == nil || database == nil {
		return ErrNotInitialized
	}
	return client.Ping(ctx, readpref.Primary())
}

// callIndexes are the indexes the call repository queries rely on.
func callIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
	}
}

// EnsureIndexes creates the video call indexes. It is idempotent.
func EnsureIndexes(ctx context.Context) error {
	if database == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	names, err := database.Collection(VideoCallsCollection).Indexes().CreateMany(ctx, callIndexes())
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", VideoCallsCollection, err)
	}

	logger.WithField("indexes", names).Debug("Video call indexes ensured")
	return nil
}

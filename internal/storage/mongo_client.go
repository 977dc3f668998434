package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/secureplay/training/pkg/logger"
)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URL      string
	Database string
}

// ConnectMongo establishes the MongoDB connection used by the event
// store and ensures the collection indexes exist.
func ConnectMongo(config MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(config.URL).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	db := client.Database(config.Database)

	if err := ensureEventIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	logger.Info("MongoDB connection established", map[string]interface{}{
		"database": config.Database,
	})

	return client, db, nil
}

// ensureEventIndexes creates the game_events indexes. The expiresAt TTL
// index makes MongoDB enforce event retention; the compound indexes
// serve the query paths used by analytics.
func ensureEventIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("game_events")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
		{
			Keys: bson.D{
				{Key: "organizationId", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("org_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "organizationId", Value: 1},
				{Key: "userId", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("org_user_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "organizationId", Value: 1},
				{Key: "eventType", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("org_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetName("session"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}
	return nil
}

// DisconnectMongo closes the MongoDB connection
func DisconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		logger.Warn("MongoDB disconnect failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.Info("MongoDB connection closed", nil)
}

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// IsReplicaSet reports whether the deployment supports change streams.
func IsReplicaSet(ctx context.Context, client *mongo.Client, logger *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result bson.M
	// "hello" replaces the deprecated "isMaster"
	err := client.Database("admin").RunCommand(ctx, bson.M{"hello": 1}).Decode(&result)
	if err != nil {
		logger.Warn("error checking replica set", "error", err)
		return false
	}

	if setName, exists := result["setName"]; exists {
		logger.Info("part of replica set", "set_name", setName)
		return true
	}

	logger.Info("not part of a replica set, real-time updates disabled")
	return false
}

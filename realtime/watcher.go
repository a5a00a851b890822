package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Watcher turns a MongoDB change stream into hub notifications. Change
// streams need a replica set; see database.IsReplicaSet.
type Watcher struct {
	db          *mongo.Database
	collections []string
	pub         Publisher
	logger      *slog.Logger
}

func NewWatcher(db *mongo.Database, collections []string, pub Publisher, logger *slog.Logger) *Watcher {
	return &Watcher{db: db, collections: collections, pub: pub, logger: logger}
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey struct {
		ID bson.RawValue `bson:"_id"`
	} `bson:"documentKey"`
}

// Run blocks until ctx is cancelled or the stream fails.
func (w *Watcher) Run(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"ns.coll":       bson.M{"$in": w.collections},
			"operationType": bson.M{"$in": []string{OpInsert, OpUpdate, OpReplace, OpDelete}},
		}}},
	}
	stream, err := w.db.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.Default))
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer stream.Close(context.Background())

	w.logger.Info("watching change stream", "database", w.db.Name(), "collections", len(w.collections))
	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			w.logger.Error("decode change event", "error", err)
			continue
		}
		w.pub.Publish(Change{
			Collection: ev.NS.Coll,
			Operation:  ev.OperationType,
			DocumentID: documentID(ev.DocumentKey.ID),
			At:         time.Now(),
		})
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}

func documentID(v bson.RawValue) string {
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	return v.String()
}

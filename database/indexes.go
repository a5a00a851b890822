package database

import (
	"context"
	"fmt"
	"time"

	"clientdesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var collectionIndexes = map[string][]mongo.IndexModel{
	// LOGIN + SIGN-UP: one account per email
	models.CollUsers: {
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
	},

	// VISIBILITY: client and employee project filters
	models.CollProjects: {
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index().SetName("idx_client_id"),
		},
		{
			Keys:    bson.D{{Key: "assigned_employees", Value: 1}},
			Options: options.Index().SetName("idx_assigned_employees"),
		},
	},

	// STAGE SEEDING: exactly one stage per canonical name per project
	models.CollStages: {
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("uniq_project_stage").SetUnique(true),
		},
	},

	models.CollTasks: {
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_project_status"),
		},
	},

	models.CollComments: {
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}},
			Options: options.Index().SetName("idx_project_id"),
		},
	},

	models.CollFiles: {
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "archived", Value: 1}},
			Options: options.Index().SetName("idx_project_archived"),
		},
	},

	models.CollDownloads: {
		{
			Keys:    bson.D{{Key: "file_id", Value: 1}, {Key: "downloaded_at", Value: -1}},
			Options: options.Index().SetName("idx_file_downloaded_at"),
		},
	},

	models.CollBrochures: {
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}},
			Options: options.Index().SetName("idx_project_id"),
		},
	},

	// PAGE NUMBERING + LOCKING: lock acquisition filters on _id + locked_by
	models.CollPages: {
		{
			Keys:    bson.D{{Key: "brochure_id", Value: 1}, {Key: "page_number", Value: 1}},
			Options: options.Index().SetName("uniq_brochure_page").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "_id", Value: 1}, {Key: "locked_by", Value: 1}},
			Options: options.Index().SetName("idx_id_locked_by"),
		},
	},

	models.CollPageComments: {
		{
			Keys:    bson.D{{Key: "page_id", Value: 1}},
			Options: options.Index().SetName("idx_page_id"),
		},
	},

	models.CollMeetings: {
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().SetName("idx_project_scheduled_at"),
		},
	},
}

// CreateIndexes creates every index the repositories rely on.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, indexes := range collectionIndexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

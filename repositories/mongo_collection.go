package repository

import (
	"context"
	"errors"
	"fmt"

	"clientdesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// failed wraps a driver error; network failures and driver timeouts are
// reported as models.ErrBackendUnavailable.
func failed(op, name string, err error) error {
	if !errors.Is(err, context.DeadlineExceeded) && (mongo.IsNetworkError(err) || mongo.IsTimeout(err)) {
		return fmt.Errorf("%s %s: %w: %w", op, name, models.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

type mongoCollection[T any] struct {
	collection *mongo.Collection
}

func newMongoCollection[T any](db *mongo.Database, name string) Collection[T] {
	return &mongoCollection[T]{collection: db.Collection(name)}
}

func (r *mongoCollection[T]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, failed("find", r.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	rows := []T{}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, failed("decode", r.collection.Name(), err)
	}
	return rows, nil
}

func (r *mongoCollection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var row T
	err := r.collection.FindOne(ctx, filter).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, failed("find one", r.collection.Name(), err)
	}
	return &row, nil
}

func (r *mongoCollection[T]) Insert(ctx context.Context, doc *T) error {
	_, err := r.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert %s: %w", r.collection.Name(), ErrDuplicate)
	}
	if err != nil {
		return failed("insert", r.collection.Name(), err)
	}
	return nil
}

func (r *mongoCollection[T]) Replace(ctx context.Context, id string, doc *T) error {
	result, err := r.collection.ReplaceOne(ctx, ByID(id), doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("replace %s: %w", r.collection.Name(), ErrDuplicate)
	}
	if err != nil {
		return failed("replace", r.collection.Name(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no document found with id %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *mongoCollection[T]) Update(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, failed("update", r.collection.Name(), err)
	}
	return result.MatchedCount, nil
}

func (r *mongoCollection[T]) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, ByID(id))
	if err != nil {
		return failed("delete", r.collection.Name(), err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("no document found with id %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// NewMongoStore wires every collection and GridFS bucket of db.
func NewMongoStore(db *mongo.Database) (*Store, error) {
	files, err := NewGridFSStore(db, "files")
	if err != nil {
		return nil, err
	}
	images, err := NewGridFSStore(db, "images")
	if err != nil {
		return nil, err
	}
	return &Store{
		Users:        newMongoCollection[models.User](db, models.CollUsers),
		Projects:     newMongoCollection[models.Project](db, models.CollProjects),
		Stages:       newMongoCollection[models.Stage](db, models.CollStages),
		Tasks:        newMongoCollection[models.Task](db, models.CollTasks),
		Comments:     newMongoCollection[models.CommentTask](db, models.CollComments),
		Files:        newMongoCollection[models.File](db, models.CollFiles),
		Downloads:    newMongoCollection[models.DownloadHistory](db, models.CollDownloads),
		Brochures:    newMongoCollection[models.BrochureProject](db, models.CollBrochures),
		Pages:        newMongoCollection[models.BrochurePage](db, models.CollPages),
		PageComments: newMongoCollection[models.PageComment](db, models.CollPageComments),
		Leads:        newMongoCollection[models.Lead](db, models.CollLeads),
		Meetings:     newMongoCollection[models.Meeting](db, models.CollMeetings),
		FileBlobs:    files,
		ImageBlobs:   images,
		Remote:       true,
	}, nil
}

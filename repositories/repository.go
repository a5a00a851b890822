package repository

import (
	"context"
	"errors"
	"io"

	"clientdesk/models"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrDuplicate is returned by Insert when a unique index rejects the row.
var ErrDuplicate = errors.New("duplicate key")

// Collection is the row-store surface the services depend on. Filters and
// updates use Mongo's operator syntax; the in-memory implementation
// understands the subset this application issues (equality, $in, $set, $inc).
type Collection[T any] interface {
	Find(ctx context.Context, filter bson.M) ([]T, error)
	FindOne(ctx context.Context, filter bson.M) (*T, error)
	Insert(ctx context.Context, doc *T) error
	Replace(ctx context.Context, id string, doc *T) error
	// Update applies update to the first row matching filter and returns
	// the number of matched rows (0 or 1).
	Update(ctx context.Context, filter bson.M, update bson.M) (int64, error)
	Delete(ctx context.Context, id string) error
}

type BlobInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	UploadedBy  string `json:"uploaded_by"`
}

// BlobStore holds uploaded file and image bytes.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType, uploadedBy string, r io.Reader) (BlobInfo, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *BlobInfo, error)
	Delete(ctx context.Context, id string) error
}

// Store groups every collection and bucket of the remote backend.
type Store struct {
	Users        Collection[models.User]
	Projects     Collection[models.Project]
	Stages       Collection[models.Stage]
	Tasks        Collection[models.Task]
	Comments     Collection[models.CommentTask]
	Files        Collection[models.File]
	Downloads    Collection[models.DownloadHistory]
	Brochures    Collection[models.BrochureProject]
	Pages        Collection[models.BrochurePage]
	PageComments Collection[models.PageComment]
	Leads        Collection[models.Lead]
	Meetings     Collection[models.Meeting]

	FileBlobs  BlobStore
	ImageBlobs BlobStore

	// Remote is false when the store is the local fallback.
	Remote bool
}

// ByID is the filter for a single row.
func ByID(id string) bson.M {
	return bson.M{"_id": id}
}

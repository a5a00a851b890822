package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"clientdesk/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type gridFSStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSStore opens the named GridFS bucket.
func NewGridFSStore(db *mongo.Database, name string) (BlobStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create GridFS bucket %s: %w", name, err)
	}
	return &gridFSStore{bucket: bucket}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *gridFSStore) Upload(ctx context.Context, name, contentType, uploadedBy string, r io.Reader) (BlobInfo, error) {
	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{
		"uploadedBy":  uploadedBy,
		"uploadedAt":  time.Now(),
		"contentType": contentType,
	})

	counter := &countingReader{r: r}
	fileID, err := s.bucket.UploadFromStream(name, counter, uploadOpts)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("failed to upload file to GridFS: %w", err)
	}
	return BlobInfo{
		ID:          fileID.Hex(),
		Name:        name,
		Size:        counter.n,
		ContentType: contentType,
		UploadedBy:  uploadedBy,
	}, nil
}

func (s *gridFSStore) Open(ctx context.Context, id string) (io.ReadCloser, *BlobInfo, error) {
	fileID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid blob id %q: %w", id, models.ErrNotFound)
	}
	stream, err := s.bucket.OpenDownloadStream(fileID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, fmt.Errorf("blob %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download file from GridFS: %w", err)
	}

	file := stream.GetFile()
	info := &BlobInfo{ID: id, Name: file.Name, Size: file.Length, ContentType: "application/octet-stream"}
	if len(file.Metadata) > 0 {
		var meta struct {
			ContentType string `bson:"contentType"`
			UploadedBy  string `bson:"uploadedBy"`
		}
		if err := bson.Unmarshal(file.Metadata, &meta); err == nil {
			if meta.ContentType != "" {
				info.ContentType = meta.ContentType
			}
			info.UploadedBy = meta.UploadedBy
		}
	}
	return stream, info, nil
}

func (s *gridFSStore) Delete(ctx context.Context, id string) error {
	fileID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid blob id %q: %w", id, models.ErrNotFound)
	}
	if err := s.bucket.Delete(fileID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("blob %s: %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("failed to delete file from GridFS: %w", err)
	}
	return nil
}

// memoryBlobStore keeps blobs in process memory for the offline fallback
// and tests.
type memoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	info BlobInfo
	data []byte
}

func NewMemoryBlobStore() BlobStore {
	return &memoryBlobStore{blobs: make(map[string]memoryBlob)}
}

func (s *memoryBlobStore) Upload(ctx context.Context, name, contentType, uploadedBy string, r io.Reader) (BlobInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("read upload: %w", err)
	}
	info := BlobInfo{
		ID:          uuid.NewString(),
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedBy:  uploadedBy,
	}
	s.mu.Lock()
	s.blobs[info.ID] = memoryBlob{info: info, data: data}
	s.mu.Unlock()
	return info, nil
}

func (s *memoryBlobStore) Open(ctx context.Context, id string) (io.ReadCloser, *BlobInfo, error) {
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("blob %s: %w", id, models.ErrNotFound)
	}
	info := b.info
	return io.NopCloser(bytes.NewReader(b.data)), &info, nil
}

func (s *memoryBlobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return fmt.Errorf("blob %s: %w", id, models.ErrNotFound)
	}
	delete(s.blobs, id)
	return nil
}

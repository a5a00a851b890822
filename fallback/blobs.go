package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"clientdesk/models"
	repository "clientdesk/repositories"

	"github.com/google/uuid"
)

// kvBlobStore keeps uploaded bytes in the KV store so offline downloads
// still work after a restart.
type kvBlobStore struct {
	kv     *KV
	bucket string
}

func NewKVBlobStore(kv *KV, bucket string) repository.BlobStore {
	return &kvBlobStore{kv: kv, bucket: bucket}
}

func (s *kvBlobStore) dataKey(id string) string { return s.bucket + ":data:" + id }
func (s *kvBlobStore) infoKey(id string) string { return s.bucket + ":info:" + id }

func (s *kvBlobStore) Upload(ctx context.Context, name, contentType, uploadedBy string, r io.Reader) (repository.BlobInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return repository.BlobInfo{}, fmt.Errorf("read upload: %w", err)
	}
	info := repository.BlobInfo{
		ID:          uuid.NewString(),
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedBy:  uploadedBy,
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return repository.BlobInfo{}, err
	}
	if err := s.kv.Put(s.dataKey(info.ID), data); err != nil {
		return repository.BlobInfo{}, err
	}
	if err := s.kv.Put(s.infoKey(info.ID), meta); err != nil {
		_ = s.kv.Delete(s.dataKey(info.ID))
		return repository.BlobInfo{}, err
	}
	return info, nil
}

func (s *kvBlobStore) Open(ctx context.Context, id string) (io.ReadCloser, *repository.BlobInfo, error) {
	meta, ok, err := s.kv.Get(s.infoKey(id))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("blob %s: %w", id, models.ErrNotFound)
	}
	var info repository.BlobInfo
	if err := json.Unmarshal(meta, &info); err != nil {
		return nil, nil, fmt.Errorf("decode blob %s: %w", id, err)
	}
	data, ok, err := s.kv.Get(s.dataKey(id))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("blob %s data: %w", id, models.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), &info, nil
}

func (s *kvBlobStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(s.infoKey(id)); err != nil {
		return err
	}
	return s.kv.Delete(s.dataKey(id))
}

package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

const filesKey = "files"

// persistentFiles decorates the in-memory file collection and writes the
// whole serialized file list to the KV store after every change.
type persistentFiles struct {
	repository.Collection[models.File]
	kv     *KV
	logger *slog.Logger
}

// PersistFiles restores the saved file list into inner and returns a
// collection that keeps the KV copy current.
func PersistFiles(ctx context.Context, inner repository.Collection[models.File], kv *KV, logger *slog.Logger) (repository.Collection[models.File], error) {
	raw, ok, err := kv.Get(filesKey)
	if err != nil {
		return nil, err
	}
	if ok {
		var files []models.File
		if err := json.Unmarshal(raw, &files); err != nil {
			return nil, fmt.Errorf("decode saved file list: %w", err)
		}
		for i := range files {
			if err := inner.Insert(ctx, &files[i]); err != nil && !errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("restore file %s: %w", files[i].ID, err)
			}
		}
		logger.Info("restored offline file list", "files", len(files))
	}
	return &persistentFiles{Collection: inner, kv: kv, logger: logger}, nil
}

func (p *persistentFiles) save(ctx context.Context) {
	files, err := p.Collection.Find(ctx, bson.M{})
	if err != nil {
		p.logger.Error("list files for offline save", "error", err)
		return
	}
	raw, err := json.Marshal(files)
	if err != nil {
		p.logger.Error("encode offline file list", "error", err)
		return
	}
	if err := p.kv.Put(filesKey, raw); err != nil {
		p.logger.Error("save offline file list", "error", err)
	}
}

func (p *persistentFiles) Insert(ctx context.Context, doc *models.File) error {
	if err := p.Collection.Insert(ctx, doc); err != nil {
		return err
	}
	p.save(ctx)
	return nil
}

func (p *persistentFiles) Replace(ctx context.Context, id string, doc *models.File) error {
	if err := p.Collection.Replace(ctx, id, doc); err != nil {
		return err
	}
	p.save(ctx)
	return nil
}

func (p *persistentFiles) Update(ctx context.Context, filter, update bson.M) (int64, error) {
	n, err := p.Collection.Update(ctx, filter, update)
	if err == nil && n > 0 {
		p.save(ctx)
	}
	return n, err
}

func (p *persistentFiles) Delete(ctx context.Context, id string) error {
	if err := p.Collection.Delete(ctx, id); err != nil {
		return err
	}
	p.save(ctx)
	return nil
}

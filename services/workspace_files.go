package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"clientdesk/access"
	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

// Upload is one pending file of a batch save.
type Upload struct {
	Filename    string
	ContentType string
	Category    string
	Tags        []string
	Body        io.Reader
}

// Files returns every visible file, newest first.
func (w *Workspace) Files() []models.File {
	rows := snapshot(w, &w.files, nil)
	slices.SortFunc(rows, func(a, b models.File) int { return b.UploadedAt.Compare(a.UploadedAt) })
	return rows
}

func (w *Workspace) ProjectFiles(projectID string) ([]models.File, error) {
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.files, func(f *models.File) bool { return f.ProjectID == projectID })
	slices.SortFunc(rows, func(a, b models.File) int { return b.UploadedAt.Compare(a.UploadedAt) })
	return rows, nil
}

func (w *Workspace) File(id string) (*models.File, error) {
	f, ok := lookup(w, &w.files, id)
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, models.ErrNotFound)
	}
	return &f, nil
}

// SaveUploads stores a batch of pending uploads. Each one is saved on its
// own; the files that succeeded are returned together with the joined
// errors of those that did not.
func (w *Workspace) SaveUploads(ctx context.Context, projectID string, uploads []Upload) ([]models.File, error) {
	if err := access.Require(w.viewer, access.UploadFile); err != nil {
		return nil, err
	}
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}

	saved := make([]models.File, 0, len(uploads))
	var errs []error
	for _, up := range uploads {
		f, err := w.saveUpload(ctx, projectID, up)
		if err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", up.Filename, err))
			continue
		}
		saved = append(saved, *f)
	}
	return saved, errors.Join(errs...)
}

func (w *Workspace) saveUpload(ctx context.Context, projectID string, up Upload) (*models.File, error) {
	f := models.File{
		ID:           w.newID(),
		ProjectID:    projectID,
		Filename:     up.Filename,
		ContentType:  up.ContentType,
		UploadedBy:   w.viewer.UserID,
		UploaderName: w.viewer.Name,
		Category:     up.Category,
		Tags:         up.Tags,
		UploadedAt:   w.now(),
		Pending:      true,
	}
	if f.Category == "" {
		f.Category = models.CategoryOther
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}

	err := mutate(ctx, w, models.CollFiles, &w.files, f.ID, &f, func() error {
		info, err := w.store.FileBlobs.Upload(ctx, up.Filename, up.ContentType, w.viewer.UserID, up.Body)
		if err != nil {
			return err
		}
		f.StoragePath = info.ID
		f.Size = info.Size
		f.Pending = false
		if err := w.store.Files.Insert(ctx, &f); err != nil {
			if derr := w.store.FileBlobs.Delete(ctx, info.ID); derr != nil {
				w.logger.Error("failed to remove blob of unsaved file", "blob_id", info.ID, "error", derr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile opens the file's bytes, increments its download count on
// the server and records who downloaded it. The caller closes the reader.
func (w *Workspace) DownloadFile(ctx context.Context, id string) (io.ReadCloser, *models.File, error) {
	f, err := w.File(id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := w.store.FileBlobs.Open(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file %s: %w", id, err)
	}

	next := *f
	next.DownloadCount++
	err = mutate(ctx, w, models.CollFiles, &w.files, id, &next, func() error {
		return matchedOne(w.store.Files.Update(ctx, repository.ByID(id), bson.M{"$inc": bson.M{"download_count": 1}}))
	})
	if err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("count download: %w", err)
	}

	h := models.DownloadHistory{
		ID:           w.newID(),
		FileID:       id,
		UserID:       w.viewer.UserID,
		UserName:     w.viewer.Name,
		DownloadedAt: w.now(),
	}
	err = mutate(ctx, w, models.CollDownloads, &w.downloads, h.ID, &h, func() error {
		return w.store.Downloads.Insert(ctx, &h)
	})
	if err != nil {
		w.logger.Warn("download history not recorded", "file_id", id, "error", err)
	}

	if cur, ok := lookup(w, &w.files, id); ok {
		next = cur
	}
	return rc, &next, nil
}

func (w *Workspace) UpdateFile(ctx context.Context, id string, patch models.FilePatch) (*models.File, error) {
	if err := access.Require(w.viewer, access.ManageFiles); err != nil {
		return nil, err
	}
	cur, err := w.File(id)
	if err != nil {
		return nil, err
	}

	next := *cur
	set := bson.M{}
	if patch.Category != nil {
		next.Category = *patch.Category
		set["category"] = next.Category
	}
	if patch.Tags != nil {
		next.Tags = patch.Tags
		set["tags"] = next.Tags
	}
	if patch.Archived != nil {
		next.Archived = *patch.Archived
		set["archived"] = next.Archived
	}
	if len(set) == 0 {
		return cur, nil
	}

	err = mutate(ctx, w, models.CollFiles, &w.files, id, &next, func() error {
		return matchedOne(w.store.Files.Update(ctx, repository.ByID(id), bson.M{"$set": set}))
	})
	if err != nil {
		return nil, fmt.Errorf("update file: %w", err)
	}
	return &next, nil
}

// DeleteFile removes the metadata row and then the stored bytes. Staff may
// delete any visible file; other users only their own uploads.
func (w *Workspace) DeleteFile(ctx context.Context, id string) error {
	f, err := w.File(id)
	if err != nil {
		return err
	}
	if f.UploadedBy != w.viewer.UserID {
		if err := access.Require(w.viewer, access.ManageFiles); err != nil {
			return err
		}
	}

	err = mutate(ctx, w, models.CollFiles, &w.files, id, nil, func() error {
		return w.store.Files.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if err := w.store.FileBlobs.Delete(ctx, f.StoragePath); err != nil {
		w.logger.Error("file row deleted but blob remains", "file_id", id, "blob_id", f.StoragePath, "error", err)
	}
	return nil
}

// DownloadHistory lists who downloaded a file, most recent first.
func (w *Workspace) DownloadHistory(fileID string) ([]models.DownloadHistory, error) {
	if err := access.Require(w.viewer, access.ViewDownloads); err != nil {
		return nil, err
	}
	if _, err := w.File(fileID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.downloads, func(h *models.DownloadHistory) bool { return h.FileID == fileID })
	slices.SortFunc(rows, func(a, b models.DownloadHistory) int { return b.DownloadedAt.Compare(a.DownloadedAt) })
	return rows, nil
}

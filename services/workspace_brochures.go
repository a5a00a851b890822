package services

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"slices"
	"strings"

	"clientdesk/access"
	"clientdesk/models"
	repository "clientdesk/repositories"

	"github.com/yuin/goldmark"
	"go.mongodb.org/mongo-driver/bson"
)

// ImagePath is the URL page content uses to reference an uploaded image.
const ImagePath = "/api/images/"

var markdown = goldmark.New()

func (w *Workspace) Brochures() []models.BrochureProject {
	rows := snapshot(w, &w.brochures, nil)
	slices.SortFunc(rows, func(a, b models.BrochureProject) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return rows
}

func (w *Workspace) Brochure(id string) (*models.BrochureProject, error) {
	b, ok := lookup(w, &w.brochures, id)
	if !ok {
		return nil, fmt.Errorf("brochure %s: %w", id, models.ErrNotFound)
	}
	return &b, nil
}

// CreateBrochure creates a brochure for a project with PageCount empty pages.
func (w *Workspace) CreateBrochure(ctx context.Context, projectID string, in models.BrochureInput) (*models.BrochureProject, error) {
	if err := access.Require(w.viewer, access.CreateBrochure); err != nil {
		return nil, err
	}
	p, err := w.Project(projectID)
	if err != nil {
		return nil, err
	}

	b := models.BrochureProject{
		ID:        w.newID(),
		ProjectID: p.ID,
		ClientID:  p.ClientID,
		Title:     in.Title,
		Status:    models.BrochureDraft,
		CreatedAt: w.now(),
	}
	err = mutate(ctx, w, models.CollBrochures, &w.brochures, b.ID, &b, func() error {
		return w.store.Brochures.Insert(ctx, &b)
	})
	if err != nil {
		return nil, fmt.Errorf("create brochure: %w", err)
	}
	for i := 0; i < in.PageCount; i++ {
		if _, err := w.AddPage(ctx, b.ID); err != nil {
			return &b, err
		}
	}
	return &b, nil
}

func (w *Workspace) Pages(brochureID string) ([]models.BrochurePage, error) {
	if _, err := w.Brochure(brochureID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.pages, func(p *models.BrochurePage) bool { return p.BrochureID == brochureID })
	slices.SortFunc(rows, func(a, b models.BrochurePage) int { return a.PageNumber - b.PageNumber })
	return rows, nil
}

func (w *Workspace) Page(id string) (*models.BrochurePage, error) {
	p, ok := lookup(w, &w.pages, id)
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

// AddPage appends an empty page numbered after the current last one.
func (w *Workspace) AddPage(ctx context.Context, brochureID string) (*models.BrochurePage, error) {
	if err := access.Require(w.viewer, access.EditPage); err != nil {
		return nil, err
	}
	pages, err := w.Pages(brochureID)
	if err != nil {
		return nil, err
	}
	number := 1
	if n := len(pages); n > 0 {
		number = pages[n-1].PageNumber + 1
	}

	p := models.BrochurePage{
		ID:         w.newID(),
		BrochureID: brochureID,
		PageNumber: number,
		Content:    models.PageContent{Images: []string{}},
		Status:     models.ApprovalPending,
		UpdatedAt:  w.now(),
	}
	err = mutate(ctx, w, models.CollPages, &w.pages, p.ID, &p, func() error {
		return w.store.Pages.Insert(ctx, &p)
	})
	if err != nil {
		return nil, fmt.Errorf("add page %d: %w", number, err)
	}
	return &p, nil
}

// lockable matches the page when it is unlocked or held by userID.
func lockable(pageID, userID string) bson.M {
	return bson.M{
		"_id":       pageID,
		"locked_by": bson.M{"$in": bson.A{"", nil, userID}},
	}
}

// LockPage takes the editing lock. The conditional update makes the server
// the arbiter: a concurrent second locker matches nothing and gets a
// *models.LockError naming the holder. Re-locking refreshes locked_at.
func (w *Workspace) LockPage(ctx context.Context, id string) (*models.BrochurePage, error) {
	if err := access.Require(w.viewer, access.EditPage); err != nil {
		return nil, err
	}
	cur, err := w.Page(id)
	if err != nil {
		return nil, err
	}

	now := w.now()
	n, err := w.store.Pages.Update(ctx, lockable(id, w.viewer.UserID), bson.M{"$set": bson.M{
		"locked_by":      w.viewer.UserID,
		"locked_by_name": w.viewer.Name,
		"locked_at":      now,
	}})
	if err != nil {
		return nil, fmt.Errorf("lock page: %w", err)
	}
	if n == 0 {
		_ = w.Reload(ctx, models.CollPages)
		return nil, w.lockConflict(ctx, id)
	}

	next := *cur
	next.LockedBy = w.viewer.UserID
	next.LockedByName = w.viewer.Name
	next.LockedAt = &now
	w.applyPage(ctx, next)
	return &next, nil
}

// UnlockPage clears the lock whoever holds it. Locks never expire, so any
// editor must be able to release a stuck one.
func (w *Workspace) UnlockPage(ctx context.Context, id string) (*models.BrochurePage, error) {
	if err := access.Require(w.viewer, access.EditPage); err != nil {
		return nil, err
	}
	cur, err := w.Page(id)
	if err != nil {
		return nil, err
	}
	if cur.Locked() && cur.LockedBy != w.viewer.UserID {
		w.logger.Info("releasing page lock held by another user", "page_id", id, "holder", cur.LockedBy)
	}

	next := *cur
	next.LockedBy = ""
	next.LockedByName = ""
	next.LockedAt = nil
	err = mutate(ctx, w, models.CollPages, &w.pages, id, &next, func() error {
		return matchedOne(w.store.Pages.Update(ctx, repository.ByID(id), bson.M{"$set": bson.M{
			"locked_by":      "",
			"locked_by_name": "",
			"locked_at":      nil,
		}}))
	})
	if err != nil {
		return nil, fmt.Errorf("unlock page: %w", err)
	}
	return &next, nil
}

// UpdatePageContent saves page content. It is refused while another user
// holds the lock; an unlocked page may be edited by any editor.
func (w *Workspace) UpdatePageContent(ctx context.Context, id string, content models.PageContent) (*models.BrochurePage, error) {
	if err := access.Require(w.viewer, access.EditPage); err != nil {
		return nil, err
	}
	cur, err := w.Page(id)
	if err != nil {
		return nil, err
	}
	if cur.LockedByOther(w.viewer.UserID) {
		return nil, pageLockError(cur)
	}
	if content.Images == nil {
		content.Images = []string{}
	}

	next := *cur
	next.Content = content
	next.UpdatedAt = w.now()
	err = mutate(ctx, w, models.CollPages, &w.pages, id, &next, func() error {
		n, err := w.store.Pages.Update(ctx, lockable(id, w.viewer.UserID), bson.M{"$set": bson.M{
			"content":    next.Content,
			"updated_at": next.UpdatedAt,
		}})
		if err != nil {
			return err
		}
		if n == 0 {
			return w.lockConflict(ctx, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return &next, nil
}

// SetPageStatus records a review decision and rolls the brochure status up
// from its pages.
func (w *Workspace) SetPageStatus(ctx context.Context, id, status string) (*models.BrochurePage, error) {
	if err := access.Require(w.viewer, access.ApprovePage); err != nil {
		return nil, err
	}
	cur, err := w.Page(id)
	if err != nil {
		return nil, err
	}

	next := *cur
	next.Status = status
	next.UpdatedAt = w.now()
	err = mutate(ctx, w, models.CollPages, &w.pages, id, &next, func() error {
		return matchedOne(w.store.Pages.Update(ctx, repository.ByID(id), bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": next.UpdatedAt,
		}}))
	})
	if err != nil {
		return nil, fmt.Errorf("set page status: %w", err)
	}
	if err := w.rollUpBrochure(ctx, cur.BrochureID); err != nil {
		w.logger.Warn("brochure status not updated", "brochure_id", cur.BrochureID, "error", err)
	}
	return &next, nil
}

func (w *Workspace) rollUpBrochure(ctx context.Context, brochureID string) error {
	b, err := w.Brochure(brochureID)
	if err != nil {
		return err
	}
	pages, err := w.Pages(brochureID)
	if err != nil {
		return err
	}

	status := models.BrochureDraft
	approved := 0
	for _, p := range pages {
		if p.Status == models.ApprovalApproved {
			approved++
		}
		if p.Status != models.ApprovalPending {
			status = models.BrochureInReview
		}
	}
	if len(pages) > 0 && approved == len(pages) {
		status = models.BrochureApproved
	}
	if status == b.Status {
		return nil
	}

	next := *b
	next.Status = status
	return mutate(ctx, w, models.CollBrochures, &w.brochures, b.ID, &next, func() error {
		return matchedOne(w.store.Brochures.Update(ctx, repository.ByID(b.ID), bson.M{"$set": bson.M{"status": status}}))
	})
}

// PreviewPage renders the page text as Markdown followed by its images.
func (w *Workspace) PreviewPage(id string) (string, error) {
	p, err := w.Page(id)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(p.Content.Text), &buf); err != nil {
		return "", fmt.Errorf("render page %s: %w", id, err)
	}
	for _, src := range p.Content.Images {
		fmt.Fprintf(&buf, "<img src=\"%s\" alt=\"\">\n", html.EscapeString(src))
	}
	return buf.String(), nil
}

// AttachPageImage stores an image and appends its URL to the page content.
func (w *Workspace) AttachPageImage(ctx context.Context, pageID, name, contentType string, r io.Reader) (*models.BrochurePage, error) {
	if err := access.Require(w.viewer, access.EditPage); err != nil {
		return nil, err
	}
	cur, err := w.Page(pageID)
	if err != nil {
		return nil, err
	}
	if cur.LockedByOther(w.viewer.UserID) {
		return nil, pageLockError(cur)
	}

	info, err := w.store.ImageBlobs.Upload(ctx, name, contentType, w.viewer.UserID, r)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	content := cur.Content
	content.Images = append(slices.Clone(content.Images), ImagePath+info.ID)
	page, err := w.UpdatePageContent(ctx, pageID, content)
	if err != nil {
		if derr := w.store.ImageBlobs.Delete(ctx, info.ID); derr != nil {
			w.logger.Error("failed to remove unattached image", "blob_id", info.ID, "error", derr)
		}
		return nil, err
	}
	return page, nil
}

// OpenImage serves an image referenced by a visible page.
func (w *Workspace) OpenImage(ctx context.Context, id string) (io.ReadCloser, *repository.BlobInfo, error) {
	ref := ImagePath + id
	visible := snapshot(w, &w.pages, func(p *models.BrochurePage) bool {
		return slices.Contains(p.Content.Images, ref)
	})
	if len(visible) == 0 {
		return nil, nil, fmt.Errorf("image %s: %w", id, models.ErrNotFound)
	}
	return w.store.ImageBlobs.Open(ctx, id)
}

func (w *Workspace) PageComments(pageID string) ([]models.PageComment, error) {
	if _, err := w.Page(pageID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.pageComments, func(c *models.PageComment) bool { return c.PageID == pageID })
	slices.SortFunc(rows, func(a, b models.PageComment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return rows, nil
}

func (w *Workspace) AddPageComment(ctx context.Context, pageID, text string) (*models.PageComment, error) {
	if err := access.Require(w.viewer, access.CommentPage); err != nil {
		return nil, err
	}
	if _, err := w.Page(pageID); err != nil {
		return nil, err
	}
	c := models.PageComment{
		ID:         w.newID(),
		PageID:     pageID,
		AuthorID:   w.viewer.UserID,
		AuthorName: w.viewer.Name,
		Text:       strings.TrimSpace(text),
		CreatedAt:  w.now(),
	}
	err := mutate(ctx, w, models.CollPageComments, &w.pageComments, c.ID, &c, func() error {
		return w.store.PageComments.Insert(ctx, &c)
	})
	if err != nil {
		return nil, fmt.Errorf("add page comment: %w", err)
	}
	return &c, nil
}

func (w *Workspace) ResolvePageComment(ctx context.Context, id string) (*models.PageComment, error) {
	if err := access.Require(w.viewer, access.CommentPage); err != nil {
		return nil, err
	}
	cur, ok := lookup(w, &w.pageComments, id)
	if !ok {
		return nil, fmt.Errorf("page comment %s: %w", id, models.ErrNotFound)
	}
	next := cur
	next.Resolved = true
	err := mutate(ctx, w, models.CollPageComments, &w.pageComments, id, &next, func() error {
		return matchedOne(w.store.PageComments.Update(ctx, repository.ByID(id), bson.M{"$set": bson.M{"resolved": true}}))
	})
	if err != nil {
		return nil, fmt.Errorf("resolve page comment: %w", err)
	}
	return &next, nil
}

// applyPage records a confirmed page write locally and refreshes pages.
func (w *Workspace) applyPage(ctx context.Context, p models.BrochurePage) {
	w.mu.Lock()
	w.pages = upsertRow(w.pages, p)
	w.mu.Unlock()
	_ = w.Reload(ctx, models.CollPages)
}

// lockConflict reads the current holder after a conditional update matched
// nothing.
func (w *Workspace) lockConflict(ctx context.Context, id string) error {
	p, err := w.store.Pages.FindOne(ctx, repository.ByID(id))
	if err != nil {
		return err
	}
	if !p.Locked() {
		// released between the update and this read
		return fmt.Errorf("page %s: %w", id, models.ErrPageLocked)
	}
	return pageLockError(p)
}

func pageLockError(p *models.BrochurePage) error {
	e := &models.LockError{PageID: p.ID, HolderID: p.LockedBy, HolderName: p.LockedByName}
	if p.LockedAt != nil {
		e.LockedAt = *p.LockedAt
	}
	return e
}

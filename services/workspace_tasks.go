package services

import (
	"context"
	"fmt"
	"slices"

	"clientdesk/access"
	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

func (w *Workspace) Tasks(projectID string) ([]models.Task, error) {
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.tasks, func(t *models.Task) bool { return t.ProjectID == projectID })
	slices.SortFunc(rows, func(a, b models.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return rows, nil
}

func (w *Workspace) CreateTask(ctx context.Context, projectID string, in models.TaskInput) (*models.Task, error) {
	if err := access.Require(w.viewer, access.ManageTasks); err != nil {
		return nil, err
	}
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}
	if err := w.checkStage(projectID, in.StageID); err != nil {
		return nil, err
	}
	if err := w.checkAssignee(projectID, in.AssigneeID); err != nil {
		return nil, err
	}

	now := w.now()
	t := models.Task{
		ID:          w.newID(),
		ProjectID:   projectID,
		StageID:     in.StageID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		AssigneeID:  in.AssigneeID,
		Deadline:    in.Deadline,
		CreatedBy:   w.viewer.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = models.TaskOpen
	}

	err := mutate(ctx, w, models.CollTasks, &w.tasks, t.ID, &t, func() error {
		return w.store.Tasks.Insert(ctx, &t)
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (w *Workspace) UpdateTask(ctx context.Context, id string, in models.TaskInput) (*models.Task, error) {
	if err := access.Require(w.viewer, access.ManageTasks); err != nil {
		return nil, err
	}
	cur, ok := lookup(w, &w.tasks, id)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	if err := w.checkStage(cur.ProjectID, in.StageID); err != nil {
		return nil, err
	}
	if err := w.checkAssignee(cur.ProjectID, in.AssigneeID); err != nil {
		return nil, err
	}

	next := cur
	next.StageID = in.StageID
	next.Title = in.Title
	next.Description = in.Description
	next.AssigneeID = in.AssigneeID
	next.Deadline = in.Deadline
	if in.Status != "" {
		next.Status = in.Status
	}
	next.UpdatedAt = w.now()

	err := mutate(ctx, w, models.CollTasks, &w.tasks, id, &next, func() error {
		return w.store.Tasks.Replace(ctx, id, &next)
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &next, nil
}

func (w *Workspace) DeleteTask(ctx context.Context, id string) error {
	if err := access.Require(w.viewer, access.ManageTasks); err != nil {
		return err
	}
	if _, ok := lookup(w, &w.tasks, id); !ok {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	err := mutate(ctx, w, models.CollTasks, &w.tasks, id, nil, func() error {
		return w.store.Tasks.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (w *Workspace) Comments(projectID string) ([]models.CommentTask, error) {
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.comments, func(c *models.CommentTask) bool { return c.ProjectID == projectID })
	slices.SortFunc(rows, func(a, b models.CommentTask) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return rows, nil
}

func (w *Workspace) CreateComment(ctx context.Context, projectID string, in models.CommentInput) (*models.CommentTask, error) {
	if err := access.Require(w.viewer, access.CreateComment); err != nil {
		return nil, err
	}
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}
	if err := w.checkStage(projectID, in.StageID); err != nil {
		return nil, err
	}
	if err := w.checkAssignee(projectID, in.AssigneeID); err != nil {
		return nil, err
	}

	c := models.CommentTask{
		ID:         w.newID(),
		ProjectID:  projectID,
		StageID:    in.StageID,
		Text:       in.Text,
		AuthorID:   w.viewer.UserID,
		AuthorName: w.viewer.Name,
		Status:     models.TaskOpen,
		AssigneeID: in.AssigneeID,
		Deadline:   in.Deadline,
		CreatedAt:  w.now(),
	}
	err := mutate(ctx, w, models.CollComments, &w.comments, c.ID, &c, func() error {
		return w.store.Comments.Insert(ctx, &c)
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &c, nil
}

// SetCommentStatus moves a comment task through open/in_progress/done.
// Staff may update any comment; authors may update their own.
func (w *Workspace) SetCommentStatus(ctx context.Context, id, status string) (*models.CommentTask, error) {
	cur, ok := lookup(w, &w.comments, id)
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	if cur.AuthorID != w.viewer.UserID {
		if err := access.Require(w.viewer, access.UpdateComment); err != nil {
			return nil, err
		}
	}
	next := cur
	next.Status = status

	err := mutate(ctx, w, models.CollComments, &w.comments, id, &next, func() error {
		return matchedOne(w.store.Comments.Update(ctx, repository.ByID(id), bson.M{"$set": bson.M{"status": status}}))
	})
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &next, nil
}

func (w *Workspace) DeleteComment(ctx context.Context, id string) error {
	cur, ok := lookup(w, &w.comments, id)
	if !ok {
		return fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	if cur.AuthorID != w.viewer.UserID && !w.viewer.IsManager() {
		return models.ErrForbidden
	}
	err := mutate(ctx, w, models.CollComments, &w.comments, id, nil, func() error {
		return w.store.Comments.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// checkStage accepts an empty stage id or one belonging to projectID.
func (w *Workspace) checkStage(projectID, stageID string) error {
	if stageID == "" {
		return nil
	}
	s, ok := lookup(w, &w.stages, stageID)
	if !ok || s.ProjectID != projectID {
		return fmt.Errorf("stage %s: %w", stageID, models.ErrInvalidReference)
	}
	return nil
}

// checkAssignee accepts an empty assignee, a staff member, or the project's
// own client. The user must be visible to the viewer.
func (w *Workspace) checkAssignee(projectID, userID string) error {
	if userID == "" {
		return nil
	}
	u, ok := lookup(w, &w.users, userID)
	if ok && u.Role != models.RoleClient {
		return nil
	}
	if p, found := lookup(w, &w.projects, projectID); ok && found && p.ClientID == userID {
		return nil
	}
	return fmt.Errorf("assignee %s: %w", userID, models.ErrInvalidReference)
}

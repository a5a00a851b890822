package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"clientdesk/access"
	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

// Projects returns the visible projects, newest first.
func (w *Workspace) Projects() []models.Project {
	rows := snapshot(w, &w.projects, nil)
	slices.SortFunc(rows, func(a, b models.Project) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return rows
}

func (w *Workspace) Project(id string) (*models.Project, error) {
	p, ok := lookup(w, &w.projects, id)
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (w *Workspace) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	if err := access.Require(w.viewer, access.CreateProject); err != nil {
		return nil, err
	}
	client, err := w.userWithRole(in.ClientID, models.RoleClient)
	if err != nil {
		return nil, err
	}
	employees, err := w.employeeList(in.AssignedEmployees)
	if err != nil {
		return nil, err
	}

	now := w.now()
	p := models.Project{
		ID:                w.newID(),
		Title:             in.Title,
		Description:       in.Description,
		ClientID:          client.ID,
		ClientName:        client.Name,
		AssignedEmployees: employees,
		Deadline:          in.Deadline,
		Status:            models.ProjectPlanning,
		Priority:          in.Priority,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if p.Priority == "" {
		p.Priority = "medium"
	}

	err = mutate(ctx, w, models.CollProjects, &w.projects, p.ID, &p, func() error {
		return w.store.Projects.Insert(ctx, &p)
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

func (w *Workspace) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	if err := access.Require(w.viewer, access.UpdateProject); err != nil {
		return nil, err
	}
	cur, err := w.Project(id)
	if err != nil {
		return nil, err
	}

	next := *cur
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Deadline != nil {
		next.Deadline = patch.Deadline
	}
	if patch.Progress != nil {
		next.Progress = *patch.Progress
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Priority != nil {
		next.Priority = *patch.Priority
	}
	if patch.AssignedEmployees != nil {
		if err := access.Require(w.viewer, access.AssignEmployees); err != nil {
			return nil, err
		}
		if next.AssignedEmployees, err = w.employeeList(patch.AssignedEmployees); err != nil {
			return nil, err
		}
	}
	next.UpdatedAt = w.now()

	err = mutate(ctx, w, models.CollProjects, &w.projects, id, &next, func() error {
		return w.store.Projects.Replace(ctx, id, &next)
	})
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &next, nil
}

// Stages returns the stages of a visible project in canonical order.
func (w *Workspace) Stages(projectID string) ([]models.Stage, error) {
	if _, err := w.Project(projectID); err != nil {
		return nil, err
	}
	rows := snapshot(w, &w.stages, func(s *models.Stage) bool { return s.ProjectID == projectID })
	slices.SortFunc(rows, func(a, b models.Stage) int { return a.Position - b.Position })
	return rows, nil
}

func (w *Workspace) UpdateStageProgress(ctx context.Context, id string, progress int) (*models.Stage, error) {
	if err := access.Require(w.viewer, access.UpdateStage); err != nil {
		return nil, err
	}
	cur, ok := lookup(w, &w.stages, id)
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, models.ErrNotFound)
	}
	next := cur
	next.Progress = progress
	next.UpdatedAt = w.now()

	err := mutate(ctx, w, models.CollStages, &w.stages, id, &next, func() error {
		return matchedOne(w.store.Stages.Update(ctx, repository.ByID(id), bson.M{"$set": bson.M{
			"progress":   next.Progress,
			"updated_at": next.UpdatedAt,
		}}))
	})
	if err != nil {
		return nil, fmt.Errorf("update stage: %w", err)
	}
	return &next, nil
}

// SetStageApproval records a client or manager decision on a stage.
func (w *Workspace) SetStageApproval(ctx context.Context, id string, req models.StageApprovalRequest) (*models.Stage, error) {
	if err := access.Require(w.viewer, access.ApproveStage); err != nil {
		return nil, err
	}
	cur, ok := lookup(w, &w.stages, id)
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, models.ErrNotFound)
	}
	next := cur
	next.Approval = req.Approval
	next.Feedback = req.Feedback
	next.UpdatedAt = w.now()

	err := mutate(ctx, w, models.CollStages, &w.stages, id, &next, func() error {
		return matchedOne(w.store.Stages.Update(ctx, repository.ByID(id), bson.M{"$set": bson.M{
			"approval":   next.Approval,
			"feedback":   next.Feedback,
			"updated_at": next.UpdatedAt,
		}}))
	})
	if err != nil {
		return nil, fmt.Errorf("set stage approval: %w", err)
	}
	return &next, nil
}

// ensureStages inserts whichever canonical stages the visible projects are
// missing. The unique (project_id, name) index turns a concurrent second
// insert into ErrDuplicate, which is ignored.
func (w *Workspace) ensureStages(ctx context.Context) error {
	w.mu.RLock()
	have := make(map[string]map[string]bool, len(w.projects))
	for _, p := range w.projects {
		have[p.ID] = map[string]bool{}
	}
	for _, s := range w.stages {
		if names, ok := have[s.ProjectID]; ok {
			names[s.Name] = true
		}
	}
	w.mu.RUnlock()

	created, raced := 0, 0
	for projectID, names := range have {
		for pos, name := range models.StageNames {
			if names[name] {
				continue
			}
			s := models.Stage{
				ID:        w.newID(),
				ProjectID: projectID,
				Name:      name,
				Position:  pos,
				Approval:  models.ApprovalPending,
				UpdatedAt: w.now(),
			}
			err := w.store.Stages.Insert(ctx, &s)
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				raced++
			case err != nil:
				return fmt.Errorf("create stage %q for project %s: %w", name, projectID, err)
			default:
				created++
			}
		}
	}
	if created > 0 {
		w.logger.Info("created missing project stages", "count", created)
	}
	if created > 0 || raced > 0 {
		return w.reloadOne(ctx, models.CollStages)
	}
	return nil
}

func (w *Workspace) userWithRole(id string, role models.Role) (*models.User, error) {
	u, ok := lookup(w, &w.users, id)
	if !ok || u.Role != role {
		return nil, fmt.Errorf("%s %s: %w", role, id, models.ErrInvalidReference)
	}
	return &u, nil
}

func (w *Workspace) employeeList(userIDs []string) ([]string, error) {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if slices.Contains(out, id) {
			continue
		}
		if _, err := w.userWithRole(id, models.RoleEmployee); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func matchedOne(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"clientdesk/access"
	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

// Users returns the visible users ordered by name.
func (w *Workspace) Users() []models.User {
	rows := snapshot(w, &w.users, nil)
	slices.SortFunc(rows, func(a, b models.User) int { return strings.Compare(a.Name, b.Name) })
	return rows
}

func (w *Workspace) User(id string) (*models.User, error) {
	u, ok := lookup(w, &w.users, id)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return &u, nil
}

// InviteUser lets a manager create an employee or client account.
func (w *Workspace) InviteUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := access.Require(w.viewer, access.ManageUsers); err != nil {
		return nil, err
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		ID:           w.newID(),
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		PasswordHash: hash,
		CreatedAt:    w.now(),
	}
	err = mutate(ctx, w, models.CollUsers, &w.users, u.ID, &u, func() error {
		return translateDuplicate(w.store.Users.Insert(ctx, &u))
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// UpdateUser changes a user's name or role. The caller evicts the target's
// workspace so a role change takes effect on their next request.
func (w *Workspace) UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := access.Require(w.viewer, access.ManageUsers); err != nil {
		return nil, err
	}
	cur, err := w.User(id)
	if err != nil {
		return nil, err
	}

	next := *cur
	set := bson.M{}
	if req.Name != "" {
		next.Name = strings.TrimSpace(req.Name)
		set["name"] = next.Name
	}
	if req.Role != "" {
		next.Role = req.Role
		set["role"] = next.Role
	}
	if len(set) == 0 {
		return cur, nil
	}

	err = mutate(ctx, w, models.CollUsers, &w.users, id, &next, func() error {
		return matchedOne(w.store.Users.Update(ctx, repository.ByID(id), bson.M{"$set": set}))
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &next, nil
}

func (w *Workspace) Leads() ([]models.Lead, error) {
	if !access.CanSeeLeads(w.viewer) {
		return nil, models.ErrForbidden
	}
	rows := snapshot(w, &w.leads, nil)
	slices.SortFunc(rows, func(a, b models.Lead) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return rows, nil
}

func (w *Workspace) CreateLead(ctx context.Context, in models.Lead) (*models.Lead, error) {
	if err := access.Require(w.viewer, access.ManageLeads); err != nil {
		return nil, err
	}
	l := newLead(in, w.newID(), w.now())
	if l.Source == "" {
		l.Source = "manual"
	}
	err := mutate(ctx, w, models.CollLeads, &w.leads, l.ID, &l, func() error {
		return w.store.Leads.Insert(ctx, &l)
	})
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return &l, nil
}

func (w *Workspace) UpdateLead(ctx context.Context, id string, patch models.LeadPatch) (*models.Lead, error) {
	if err := access.Require(w.viewer, access.ManageLeads); err != nil {
		return nil, err
	}
	cur, ok := lookup(w, &w.leads, id)
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, models.ErrNotFound)
	}

	next := cur
	set := bson.M{}
	if patch.Status != nil {
		next.Status = *patch.Status
		set["status"] = next.Status
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
		set["notes"] = next.Notes
	}
	if patch.Phone != nil {
		next.Phone = *patch.Phone
		set["phone"] = next.Phone
	}
	if len(set) == 0 {
		return &cur, nil
	}

	err := mutate(ctx, w, models.CollLeads, &w.leads, id, &next, func() error {
		return matchedOne(w.store.Leads.Update(ctx, repository.ByID(id), bson.M{"$set": set}))
	})
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return &next, nil
}

func (w *Workspace) DeleteLead(ctx context.Context, id string) error {
	if err := access.Require(w.viewer, access.ManageLeads); err != nil {
		return err
	}
	if _, ok := lookup(w, &w.leads, id); !ok {
		return fmt.Errorf("lead %s: %w", id, models.ErrNotFound)
	}
	err := mutate(ctx, w, models.CollLeads, &w.leads, id, nil, func() error {
		return w.store.Leads.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return nil
}

// Meetings returns meetings on visible projects, soonest first.
func (w *Workspace) Meetings() []models.Meeting {
	rows := snapshot(w, &w.meetings, nil)
	slices.SortFunc(rows, func(a, b models.Meeting) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return rows
}

func (w *Workspace) CreateMeeting(ctx context.Context, in models.Meeting) (*models.Meeting, error) {
	if err := access.Require(w.viewer, access.ScheduleMeeting); err != nil {
		return nil, err
	}
	if _, err := w.Project(in.ProjectID); err != nil {
		return nil, err
	}
	m := in
	m.ID = w.newID()
	m.CreatedBy = w.viewer.UserID
	m.CreatedAt = w.now()
	if m.Attendees == nil {
		m.Attendees = []string{}
	}
	err := mutate(ctx, w, models.CollMeetings, &w.meetings, m.ID, &m, func() error {
		return w.store.Meetings.Insert(ctx, &m)
	})
	if err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	return &m, nil
}

func (w *Workspace) DeleteMeeting(ctx context.Context, id string) error {
	if err := access.Require(w.viewer, access.ScheduleMeeting); err != nil {
		return err
	}
	if _, ok := lookup(w, &w.meetings, id); !ok {
		return fmt.Errorf("meeting %s: %w", id, models.ErrNotFound)
	}
	err := mutate(ctx, w, models.CollMeetings, &w.meetings, id, nil, func() error {
		return w.store.Meetings.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	return nil
}

func translateDuplicate(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return models.ErrEmailTaken
	}
	return err
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"clientdesk/access"
	"clientdesk/models"
	"clientdesk/realtime"
	repository "clientdesk/repositories"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// Workspace is one viewer's in-memory mirror of the store: every collection
// the viewer may see, reloaded wholesale when it changes.
type Workspace struct {
	store  *repository.Store
	viewer access.Viewer
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	mu           sync.RWMutex
	users        []models.User
	projects     []models.Project
	stages       []models.Stage
	tasks        []models.Task
	comments     []models.CommentTask
	files        []models.File
	downloads    []models.DownloadHistory
	brochures    []models.BrochureProject
	pages        []models.BrochurePage
	pageComments []models.PageComment
	leads        []models.Lead
	meetings     []models.Meeting
	loadedAt     time.Time
}

func NewWorkspace(store *repository.Store, viewer access.Viewer, logger *slog.Logger) *Workspace {
	return &Workspace{
		store:  store,
		viewer: viewer,
		logger: logger.With("user_id", viewer.UserID, "role", viewer.Role),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (w *Workspace) Viewer() access.Viewer { return w.viewer }

// Sees reports whether a change notification concerns a row the viewer may
// see. A row the workspace does not hold yet (a fresh insert) is looked up
// in the store and checked against the viewer's projects.
func (w *Workspace) Sees(ctx context.Context, c realtime.Change) bool {
	v := w.viewer
	if c.DocumentID == "" {
		// drop or invalidate of a whole collection
		return !v.IsClient()
	}
	id := c.DocumentID

	switch c.Collection {
	case models.CollLeads:
		return access.CanSeeLeads(v)
	case models.CollDownloads:
		return access.Can(v, access.ViewDownloads) || holds(w, &w.downloads, id)
	case models.CollUsers:
		return v.IsManager() || id == v.UserID || holds(w, &w.users, id)
	case models.CollProjects:
		return holds(w, &w.projects, id) || w.projectVisible(ctx, id)
	case models.CollStages:
		return holds(w, &w.stages, id) || rowVisible(ctx, w, w.store.Stages, id, func(s *models.Stage) string { return s.ProjectID })
	case models.CollTasks:
		return holds(w, &w.tasks, id) || rowVisible(ctx, w, w.store.Tasks, id, func(t *models.Task) string { return t.ProjectID })
	case models.CollComments:
		return holds(w, &w.comments, id) || rowVisible(ctx, w, w.store.Comments, id, func(cm *models.CommentTask) string { return cm.ProjectID })
	case models.CollFiles:
		if holds(w, &w.files, id) {
			return true
		}
		f, err := w.store.Files.FindOne(ctx, repository.ByID(id))
		return err == nil && !(v.IsClient() && f.Archived) && w.projectVisible(ctx, f.ProjectID)
	case models.CollBrochures:
		return holds(w, &w.brochures, id) || rowVisible(ctx, w, w.store.Brochures, id, func(b *models.BrochureProject) string { return b.ProjectID })
	case models.CollMeetings:
		return holds(w, &w.meetings, id) || rowVisible(ctx, w, w.store.Meetings, id, func(m *models.Meeting) string { return m.ProjectID })
	case models.CollPages:
		if holds(w, &w.pages, id) {
			return true
		}
		p, err := w.store.Pages.FindOne(ctx, repository.ByID(id))
		return err == nil && w.brochureVisible(ctx, p.BrochureID)
	case models.CollPageComments:
		if holds(w, &w.pageComments, id) {
			return true
		}
		pc, err := w.store.PageComments.FindOne(ctx, repository.ByID(id))
		if err != nil {
			return false
		}
		if holds(w, &w.pages, pc.PageID) {
			return true
		}
		p, err := w.store.Pages.FindOne(ctx, repository.ByID(pc.PageID))
		return err == nil && w.brochureVisible(ctx, p.BrochureID)
	}
	return false
}

func holds[T identified](w *Workspace, rows *[]T, id string) bool {
	_, ok := lookup(w, rows, id)
	return ok
}

// projectVisible checks the workspace first and then the stored project,
// which may be newer than the workspace copy.
func (w *Workspace) projectVisible(ctx context.Context, projectID string) bool {
	if holds(w, &w.projects, projectID) {
		return true
	}
	p, err := w.store.Projects.FindOne(ctx, repository.ByID(projectID))
	return err == nil && access.CanSeeProject(w.viewer, p)
}

func (w *Workspace) brochureVisible(ctx context.Context, brochureID string) bool {
	if holds(w, &w.brochures, brochureID) {
		return true
	}
	b, err := w.store.Brochures.FindOne(ctx, repository.ByID(brochureID))
	return err == nil && w.projectVisible(ctx, b.ProjectID)
}

func rowVisible[T any](ctx context.Context, w *Workspace, c repository.Collection[T], id string, projectOf func(*T) string) bool {
	row, err := c.FindOne(ctx, repository.ByID(id))
	return err == nil && w.projectVisible(ctx, projectOf(row))
}

func (w *Workspace) LoadedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loadedAt
}

// Load reloads every collection. Projects come first because they scope
// everything else; pages and page comments follow their parents.
func (w *Workspace) Load(ctx context.Context) error {
	if err := w.reloadProjects(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, coll := range []string{
		models.CollUsers, models.CollStages, models.CollTasks, models.CollComments,
		models.CollFiles, models.CollDownloads, models.CollBrochures,
		models.CollLeads, models.CollMeetings,
	} {
		g.Go(func() error { return w.reloadOne(gctx, coll) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := w.ensureStages(ctx); err != nil {
		return err
	}
	if err := w.reloadOne(ctx, models.CollPages); err != nil {
		return err
	}
	if err := w.reloadOne(ctx, models.CollPageComments); err != nil {
		return err
	}

	w.mu.Lock()
	w.loadedAt = w.now()
	w.mu.Unlock()
	return nil
}

// Reload replaces one collection and whatever depends on it. On failure the
// previous in-memory state is kept.
func (w *Workspace) Reload(ctx context.Context, coll string) error {
	var err error
	switch coll {
	case models.CollProjects:
		// visibility of every project-scoped collection may have changed
		err = w.Load(ctx)
	case models.CollBrochures:
		if err = w.reloadOne(ctx, models.CollBrochures); err == nil {
			if err = w.reloadOne(ctx, models.CollPages); err == nil {
				err = w.reloadOne(ctx, models.CollPageComments)
			}
		}
	case models.CollPages:
		if err = w.reloadOne(ctx, models.CollPages); err == nil {
			err = w.reloadOne(ctx, models.CollPageComments)
		}
	default:
		err = w.reloadOne(ctx, coll)
	}
	if err != nil {
		w.logger.Error("reload failed, keeping previous state", "collection", coll, "error", err)
	}
	return err
}

func (w *Workspace) reloadProjects(ctx context.Context) error {
	rows, err := fetch(ctx, w.store.Projects, access.ProjectFilter(w.viewer), func(p *models.Project) bool {
		return access.CanSeeProject(w.viewer, p)
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.projects = rows
	w.mu.Unlock()
	return nil
}

func (w *Workspace) reloadOne(ctx context.Context, coll string) error {
	w.mu.RLock()
	v := w.viewer
	scope := access.ScopeOf(v, w.projects)
	projects := slices.Clone(w.projects)
	brochureIDs := ids(w.brochures)
	pageIDs := ids(w.pages)
	w.mu.RUnlock()

	inScope := func(projectID string) bool { return scope.Contains(projectID) }

	switch coll {
	case models.CollProjects:
		return w.reloadProjects(ctx)

	case models.CollUsers:
		filter := bson.M{}
		if !v.IsManager() {
			filter = bson.M{"_id": bson.M{"$in": relatedUserIDs(v, projects)}}
		}
		rows, err := fetch(ctx, w.store.Users, filter, func(u *models.User) bool {
			return access.CanSeeUser(v, u, projects)
		})
		return w.set(err, func() { w.users = rows })

	case models.CollStages:
		rows, err := fetch(ctx, w.store.Stages, scope.Filter("project_id"), func(s *models.Stage) bool {
			return inScope(s.ProjectID)
		})
		return w.set(err, func() { w.stages = rows })

	case models.CollTasks:
		rows, err := fetch(ctx, w.store.Tasks, scope.Filter("project_id"), func(t *models.Task) bool {
			return inScope(t.ProjectID)
		})
		return w.set(err, func() { w.tasks = rows })

	case models.CollComments:
		rows, err := fetch(ctx, w.store.Comments, scope.Filter("project_id"), func(c *models.CommentTask) bool {
			return inScope(c.ProjectID)
		})
		return w.set(err, func() { w.comments = rows })

	case models.CollFiles:
		rows, err := fetch(ctx, w.store.Files, scope.Filter("project_id"), func(f *models.File) bool {
			// archived files are internal
			return inScope(f.ProjectID) && !(v.IsClient() && f.Archived)
		})
		return w.set(err, func() { w.files = rows })

	case models.CollDownloads:
		filter := bson.M{}
		if !access.Can(v, access.ViewDownloads) {
			filter = bson.M{"user_id": v.UserID}
		}
		rows, err := fetch(ctx, w.store.Downloads, filter, nil)
		return w.set(err, func() { w.downloads = rows })

	case models.CollBrochures:
		rows, err := fetch(ctx, w.store.Brochures, scope.Filter("project_id"), func(b *models.BrochureProject) bool {
			return inScope(b.ProjectID)
		})
		return w.set(err, func() { w.brochures = rows })

	case models.CollPages:
		rows, err := fetch(ctx, w.store.Pages, bson.M{"brochure_id": bson.M{"$in": brochureIDs}}, nil)
		return w.set(err, func() { w.pages = rows })

	case models.CollPageComments:
		rows, err := fetch(ctx, w.store.PageComments, bson.M{"page_id": bson.M{"$in": pageIDs}}, nil)
		return w.set(err, func() { w.pageComments = rows })

	case models.CollLeads:
		if !access.CanSeeLeads(v) {
			return w.set(nil, func() { w.leads = nil })
		}
		rows, err := fetch(ctx, w.store.Leads, bson.M{}, nil)
		return w.set(err, func() { w.leads = rows })

	case models.CollMeetings:
		rows, err := fetch(ctx, w.store.Meetings, scope.Filter("project_id"), func(m *models.Meeting) bool {
			return inScope(m.ProjectID)
		})
		return w.set(err, func() { w.meetings = rows })
	}
	return fmt.Errorf("unknown collection %q", coll)
}

func (w *Workspace) set(err error, apply func()) error {
	if err != nil {
		return err
	}
	w.mu.Lock()
	apply()
	w.mu.Unlock()
	return nil
}

// fetch runs the query-level filter and then the in-process keep pass.
func fetch[T any](ctx context.Context, c repository.Collection[T], filter bson.M, keep func(*T) bool) ([]T, error) {
	rows, err := c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if keep == nil {
		return rows, nil
	}
	out := rows[:0]
	for i := range rows {
		if keep(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func relatedUserIDs(v access.Viewer, projects []models.Project) []string {
	seen := map[string]struct{}{v.UserID: {}}
	out := []string{v.UserID}
	add := func(id string) {
		if _, ok := seen[id]; !ok && id != "" {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for i := range projects {
		add(projects[i].ClientID)
		for _, e := range projects[i].AssignedEmployees {
			add(e)
		}
	}
	return out
}

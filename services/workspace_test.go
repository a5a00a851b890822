package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"clientdesk/access"
	"clientdesk/fallback"
	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	managerID  = "sample-manager"
	employeeID = "sample-employee"
	clientAID  = "sample-client-a"
	clientBID  = "sample-client-b"
	projectAID = "sample-project-a"
	projectBID = "sample-project-b"
)

var errRemote = errors.New("remote unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(t *testing.T) *repository.Store {
	t.Helper()
	store := repository.NewMemoryStore(nil)
	if err := fallback.Seed(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func loadWorkspace(t *testing.T, store *repository.Store, userID string) *Workspace {
	t.Helper()
	ctx := context.Background()
	u, err := store.Users.FindOne(ctx, repository.ByID(userID))
	if err != nil {
		t.Fatalf("find user %s: %v", userID, err)
	}
	ws := NewWorkspace(store, access.Viewer{UserID: u.ID, Name: u.Name, Role: u.Role}, discardLogger())
	if err := ws.Load(ctx); err != nil {
		t.Fatalf("load workspace for %s: %v", userID, err)
	}
	return ws
}

// failing rejects every write with errRemote.
type failing[T any] struct {
	repository.Collection[T]
}

func (f failing[T]) Insert(context.Context, *T) error                      { return errRemote }
func (f failing[T]) Replace(context.Context, string, *T) error             { return errRemote }
func (f failing[T]) Update(context.Context, bson.M, bson.M) (int64, error) { return 0, errRemote }
func (f failing[T]) Delete(context.Context, string) error                  { return errRemote }

type recordingBlobs struct {
	repository.BlobStore
	mu      sync.Mutex
	deleted []string
}

func (r *recordingBlobs) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, id)
	r.mu.Unlock()
	return r.BlobStore.Delete(ctx, id)
}

func TestStagesCreatedExactlyOnce(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{managerID, employeeID, clientAID, managerID} {
		u, err := store.Users.FindOne(ctx, repository.ByID(id))
		if err != nil {
			t.Fatal(err)
		}
		ws := NewWorkspace(store, access.Viewer{UserID: u.ID, Name: u.Name, Role: u.Role}, discardLogger())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Load(ctx); err != nil {
				t.Errorf("load %s: %v", id, err)
			}
		}()
	}
	wg.Wait()

	for _, projectID := range []string{projectAID, projectBID} {
		stages, err := store.Stages.Find(ctx, bson.M{"project_id": projectID})
		if err != nil {
			t.Fatal(err)
		}
		if len(stages) != len(models.StageNames) {
			t.Fatalf("project %s has %d stages, want %d", projectID, len(stages), len(models.StageNames))
		}
		seen := map[string]bool{}
		for _, s := range stages {
			if seen[s.Name] {
				t.Errorf("project %s has duplicate stage %q", projectID, s.Name)
			}
			seen[s.Name] = true
		}
	}

	ws := loadWorkspace(t, store, managerID)
	stages, err := ws.Stages(projectAID)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range stages {
		if s.Name != models.StageNames[i] {
			t.Errorf("stage %d = %q, want %q", i, s.Name, models.StageNames[i])
		}
	}
}

func TestNewProjectGetsStages(t *testing.T) {
	store := seededStore(t)
	ws := loadWorkspace(t, store, managerID)

	p, err := ws.CreateProject(context.Background(), models.ProjectInput{
		Title:             "Logo refresh",
		ClientID:          clientBID,
		AssignedEmployees: []string{employeeID, employeeID},
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ClientName != "Birch Dental" {
		t.Errorf("client name = %q", p.ClientName)
	}
	if len(p.AssignedEmployees) != 1 {
		t.Errorf("assigned = %v, want de-duplicated", p.AssignedEmployees)
	}
	stages, err := ws.Stages(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != len(models.StageNames) {
		t.Fatalf("new project has %d stages", len(stages))
	}
}

func TestCreateProjectRejectsNonClient(t *testing.T) {
	store := seededStore(t)
	ws := loadWorkspace(t, store, managerID)

	_, err := ws.CreateProject(context.Background(), models.ProjectInput{Title: "x", ClientID: employeeID})
	if !errors.Is(err, models.ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}
}

func TestClientIsolation(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	manager := loadWorkspace(t, store, managerID)
	clientA := loadWorkspace(t, store, clientAID)
	clientB := loadWorkspace(t, store, clientBID)

	projects := clientA.Projects()
	if len(projects) != 1 || projects[0].ID != projectAID {
		t.Fatalf("client A sees %v", projects)
	}
	if _, err := clientA.Project(projectBID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("client A reading project B: err = %v", err)
	}
	if _, err := clientB.Pages("sample-brochure-a"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("client B reading brochure A pages: err = %v", err)
	}
	if len(clientB.Brochures()) != 0 {
		t.Errorf("client B sees brochures %v", clientB.Brochures())
	}

	_, err := manager.SaveUploads(ctx, projectBID, []Upload{{Filename: "contract.pdf", Body: strings.NewReader("pdf")}})
	if err != nil {
		t.Fatal(err)
	}
	if err := clientA.Reload(ctx, models.CollFiles); err != nil {
		t.Fatal(err)
	}
	if files := clientA.Files(); len(files) != 0 {
		t.Errorf("client A sees project B files: %v", files)
	}
	if err := clientB.Reload(ctx, models.CollFiles); err != nil {
		t.Fatal(err)
	}
	if files := clientB.Files(); len(files) != 1 {
		t.Errorf("client B sees %d files, want 1", len(files))
	}

	for _, u := range clientA.Users() {
		if u.ID == clientBID {
			t.Error("client A can see client B's account")
		}
	}
	if _, err := clientA.Leads(); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("client leads: err = %v", err)
	}
}

func TestEmployeeSeesAssignedProjectsOnly(t *testing.T) {
	store := seededStore(t)
	ws := loadWorkspace(t, store, employeeID)

	projects := ws.Projects()
	if len(projects) != 1 || projects[0].ID != projectAID {
		t.Fatalf("employee sees %v", projects)
	}
	if _, err := ws.Stages(projectBID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("employee reading unassigned stages: err = %v", err)
	}
}

func TestDownloadCountIsMonotonic(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	manager := loadWorkspace(t, store, managerID)
	client := loadWorkspace(t, store, clientAID)

	saved, err := manager.SaveUploads(ctx, projectAID, []Upload{{Filename: "menu.pdf", ContentType: "application/pdf", Body: strings.NewReader("menu")}})
	if err != nil || len(saved) != 1 {
		t.Fatalf("SaveUploads = %v, %v", saved, err)
	}
	fileID := saved[0].ID
	if err := client.Reload(ctx, models.CollFiles); err != nil {
		t.Fatal(err)
	}

	last := 0
	for i := 0; i < 3; i++ {
		rc, f, err := client.DownloadFile(ctx, fileID)
		if err != nil {
			t.Fatalf("download %d: %v", i, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != "menu" {
			t.Errorf("body = %q", body)
		}
		if f.DownloadCount <= last {
			t.Fatalf("download count went from %d to %d", last, f.DownloadCount)
		}
		last = f.DownloadCount
	}

	stored, err := store.Files.FindOne(ctx, repository.ByID(fileID))
	if err != nil {
		t.Fatal(err)
	}
	if stored.DownloadCount != 3 {
		t.Errorf("stored count = %d, want 3", stored.DownloadCount)
	}

	if err := manager.Reload(ctx, models.CollDownloads); err != nil {
		t.Fatal(err)
	}
	history, err := manager.DownloadHistory(fileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[0].UserID != clientAID {
		t.Errorf("history = %+v", history)
	}
	if _, err := client.DownloadHistory(fileID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("client history: err = %v", err)
	}
}

func TestFailedWritesRollBack(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	ws := loadWorkspace(t, store, managerID)

	task, err := ws.CreateTask(ctx, projectAID, models.TaskInput{Title: "Proof colours"})
	if err != nil {
		t.Fatal(err)
	}

	store.Tasks = failing[models.Task]{store.Tasks}
	store.Projects = failing[models.Project]{store.Projects}

	if _, err := ws.CreateTask(ctx, projectAID, models.TaskInput{Title: "Never saved"}); !errors.Is(err, errRemote) {
		t.Fatalf("create: err = %v", err)
	}
	tasks, _ := ws.Tasks(projectAID)
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("after failed create, tasks = %+v", tasks)
	}

	if err := ws.DeleteTask(ctx, task.ID); !errors.Is(err, errRemote) {
		t.Fatalf("delete: err = %v", err)
	}
	if tasks, _ := ws.Tasks(projectAID); len(tasks) != 1 {
		t.Errorf("after failed delete, tasks = %+v", tasks)
	}

	title := "Renamed"
	if _, err := ws.UpdateProject(ctx, projectAID, models.ProjectPatch{Title: &title}); !errors.Is(err, errRemote) {
		t.Fatalf("update: err = %v", err)
	}
	p, _ := ws.Project(projectAID)
	if p.Title != "Acme spring brochure" {
		t.Errorf("after failed update, title = %q", p.Title)
	}
}

func TestSaveUploadsRemovesBlobWhenMetadataFails(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	blobs := &recordingBlobs{BlobStore: store.FileBlobs}
	store.FileBlobs = blobs
	ws := loadWorkspace(t, store, managerID)

	store.Files = failing[models.File]{store.Files}
	saved, err := ws.SaveUploads(ctx, projectAID, []Upload{
		{Filename: "a.png", Body: strings.NewReader("a")},
		{Filename: "b.png", Body: strings.NewReader("b")},
	})
	if err == nil || len(saved) != 0 {
		t.Fatalf("SaveUploads = %v, %v", saved, err)
	}
	if len(blobs.deleted) != 2 {
		t.Errorf("deleted blobs = %v, want 2", blobs.deleted)
	}
	if files := ws.Files(); len(files) != 0 {
		t.Errorf("pending files left behind: %+v", files)
	}
}

func TestPageLocking(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	employee := loadWorkspace(t, store, employeeID)
	manager := loadWorkspace(t, store, managerID)
	const pageID = "sample-page-1"

	locked, err := employee.LockPage(ctx, pageID)
	if err != nil {
		t.Fatalf("employee lock: %v", err)
	}
	if locked.LockedBy != employeeID {
		t.Fatalf("locked_by = %q", locked.LockedBy)
	}

	_, err = manager.LockPage(ctx, pageID)
	var lockErr *models.LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("second lock: err = %v, want LockError", err)
	}
	if lockErr.HolderID != employeeID || lockErr.HolderName != "Dana Designer" {
		t.Errorf("holder = %+v", lockErr)
	}

	if _, err := manager.UpdatePageContent(ctx, pageID, models.PageContent{Text: "overwrite"}); !errors.Is(err, models.ErrPageLocked) {
		t.Fatalf("edit while locked: err = %v", err)
	}
	if p, _ := manager.Page(pageID); p.Content.Text == "overwrite" {
		t.Error("rejected edit left in local state")
	}

	later := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	employee.now = func() time.Time { return later }
	if _, err := employee.LockPage(ctx, pageID); err != nil {
		t.Fatalf("re-lock by holder: %v", err)
	}
	stored, _ := store.Pages.FindOne(ctx, repository.ByID(pageID))
	if stored.LockedAt == nil || !stored.LockedAt.Equal(later) {
		t.Errorf("locked_at = %v, want %v", stored.LockedAt, later)
	}

	if _, err := employee.UpdatePageContent(ctx, pageID, models.PageContent{Text: "# Spring"}); err != nil {
		t.Fatalf("holder edit: %v", err)
	}

	if _, err := manager.UnlockPage(ctx, pageID); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	stored, _ = store.Pages.FindOne(ctx, repository.ByID(pageID))
	if stored.Locked() || stored.LockedAt != nil {
		t.Errorf("page still locked after unlock: %+v", stored)
	}
	if _, err := manager.LockPage(ctx, pageID); err != nil {
		t.Errorf("lock after unlock: %v", err)
	}
}

func TestClientCannotEditPages(t *testing.T) {
	store := seededStore(t)
	client := loadWorkspace(t, store, clientAID)

	if _, err := client.LockPage(context.Background(), "sample-page-1"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("client lock: err = %v", err)
	}
	if _, err := client.CreateProject(context.Background(), models.ProjectInput{Title: "x", ClientID: clientAID}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("client create project: err = %v", err)
	}
}

func TestPageApprovalRollsUpToBrochure(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	client := loadWorkspace(t, store, clientAID)

	for _, id := range []string{"sample-page-1", "sample-page-2", "sample-page-3"} {
		if _, err := client.SetPageStatus(ctx, id, models.ApprovalApproved); err != nil {
			t.Fatalf("approve %s: %v", id, err)
		}
	}
	b, err := store.Brochures.FindOne(ctx, repository.ByID("sample-brochure-a"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != models.BrochureApproved {
		t.Errorf("brochure status = %q", b.Status)
	}
}

func TestPreviewRendersMarkdown(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	ws := loadWorkspace(t, store, managerID)

	page, err := ws.AttachPageImage(ctx, "sample-page-1", "hero.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatal(err)
	}
	html, err := ws.PreviewPage(page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h1>Page 1</h1>") {
		t.Errorf("preview missing heading: %s", html)
	}
	if !strings.Contains(html, `<img src="`+page.Content.Images[0]+`"`) {
		t.Errorf("preview missing image: %s", html)
	}

	imageID := strings.TrimPrefix(page.Content.Images[0], ImagePath)
	client := loadWorkspace(t, store, clientAID)
	rc, _, err := client.OpenImage(ctx, imageID)
	if err != nil {
		t.Fatalf("client open image: %v", err)
	}
	rc.Close()
	other := loadWorkspace(t, store, clientBID)
	if _, _, err := other.OpenImage(ctx, imageID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("other client open image: err = %v", err)
	}
}

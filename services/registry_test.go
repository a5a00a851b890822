package services

import (
	"context"
	"testing"
	"time"

	"clientdesk/fallback"
	"clientdesk/models"
	"clientdesk/realtime"
	repository "clientdesk/repositories"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func liveRegistry(t *testing.T) (*Registry, *repository.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := realtime.NewHub(discardLogger())
	store := repository.NewMemoryStore(hub)
	if err := fallback.Seed(ctx, store); err != nil {
		t.Fatal(err)
	}
	registry := NewRegistry(store, discardLogger())
	changes, unsubscribe := hub.Subscribe(256)
	t.Cleanup(unsubscribe)
	go registry.Run(ctx, changes)
	return registry, store
}

func TestRegistryReusesWorkspace(t *testing.T) {
	registry, _ := liveRegistry(t)
	ctx := context.Background()

	a, err := registry.For(ctx, clientAID)
	if err != nil {
		t.Fatal(err)
	}
	b, err := registry.For(ctx, clientAID)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the same workspace for repeated lookups")
	}
	if _, err := registry.For(ctx, "nobody"); err == nil {
		t.Error("expected an error for an unknown user")
	}
}

func TestWorkspacesFollowOtherUsersWrites(t *testing.T) {
	registry, _ := liveRegistry(t)
	ctx := context.Background()

	client, err := registry.For(ctx, clientAID)
	if err != nil {
		t.Fatal(err)
	}
	manager, err := registry.For(ctx, managerID)
	if err != nil {
		t.Fatal(err)
	}

	task, err := manager.CreateTask(ctx, projectAID, models.TaskInput{Title: "Send proofs"})
	if err != nil {
		t.Fatal(err)
	}
	eventually(t, "client to see the new task", func() bool {
		tasks, _ := client.Tasks(projectAID)
		for _, tk := range tasks {
			if tk.ID == task.ID {
				return true
			}
		}
		return false
	})
}

func TestRoleChangeEvictsWorkspace(t *testing.T) {
	registry, _ := liveRegistry(t)
	ctx := context.Background()

	employee, err := registry.For(ctx, employeeID)
	if err != nil {
		t.Fatal(err)
	}
	manager, err := registry.For(ctx, managerID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.UpdateUser(ctx, employeeID, models.UpdateUserRequest{Role: models.RoleManager}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "employee workspace to be rebuilt", func() bool {
		ws, err := registry.For(ctx, employeeID)
		return err == nil && ws != employee && ws.Viewer().IsManager()
	})
	ws, _ := registry.For(ctx, employeeID)
	if got := len(ws.Projects()); got != 2 {
		t.Errorf("promoted user sees %d projects, want 2", got)
	}
}

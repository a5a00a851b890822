package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clientdesk/fallback"
	"clientdesk/handlers"
	"clientdesk/realtime"
	repository "clientdesk/repositories"
	"clientdesk/services"
)

const testSecret = "routes-test-secret"

type envelope struct {
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Count      *int              `json:"count"`
	Errors     map[string]string `json:"errors"`
}

func newServer(t *testing.T) (*httptest.Server, *repository.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := realtime.NewHub(logger)
	store := repository.NewMemoryStore(hub)
	if err := fallback.Seed(ctx, store); err != nil {
		t.Fatal(err)
	}
	registry := services.NewRegistry(store, logger)
	changes, unsubscribe := hub.Subscribe(256)
	t.Cleanup(unsubscribe)
	go registry.Run(ctx, changes)

	mux := SetupRoutes(Handlers{
		Auth:      handlers.NewAuthHandler(services.NewAuthService(store, testSecret, time.Hour), logger),
		Users:     handlers.NewUserHandler(registry, logger),
		Projects:  handlers.NewProjectHandler(registry, logger),
		Tasks:     handlers.NewTaskHandler(registry, logger),
		Files:     handlers.NewFileHandler(registry, logger, 1<<20),
		Brochures: handlers.NewBrochureHandler(registry, logger, 1<<20),
		Leads:     handlers.NewLeadHandler(registry, logger),
		Events:    handlers.NewEventHandler(registry, hub, logger),
		Health:    handlers.NewHealthHandler(store),
	}, testSecret)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, payload)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func login(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	code, env := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": fallback.SamplePassword,
	})
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", email, code, env.Message)
	}
	var auth struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &auth); err != nil || auth.Token == "" {
		t.Fatalf("login %s: no token in %s", email, env.Data)
	}
	return auth.Token
}

func TestSignupAndMe(t *testing.T) {
	srv, _ := newServer(t)

	code, env := call(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "new.client@example.com",
		"password": "long-enough-password",
		"name":     "New Client",
	})
	if code != http.StatusCreated {
		t.Fatalf("signup status = %d (%s)", code, env.Message)
	}
	var auth struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		t.Fatal(err)
	}
	if auth.User.Role != "client" {
		t.Errorf("role = %q, want client", auth.User.Role)
	}

	if code, _ := call(t, srv, http.MethodGet, "/api/auth/me", auth.Token, nil); code != http.StatusOK {
		t.Errorf("me status = %d", code)
	}

	code, env = call(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "NEW.client@example.com",
		"password": "long-enough-password",
		"name":     "Again",
	})
	if code != http.StatusConflict || env.Errors["email"] == "" {
		t.Errorf("duplicate signup = %d %v", code, env.Errors)
	}
}

func TestValidationErrors(t *testing.T) {
	srv, _ := newServer(t)

	code, env := call(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	for _, field := range []string{"email", "password", "name"} {
		if env.Errors[field] == "" {
			t.Errorf("missing error for %s in %v", field, env.Errors)
		}
	}
}

func TestUnauthenticated(t *testing.T) {
	srv, _ := newServer(t)

	if code, _ := call(t, srv, http.MethodGet, "/api/projects", "", nil); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
	if code, _ := call(t, srv, http.MethodGet, "/api/projects", "garbage", nil); code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", code)
	}
}

func TestProjectVisibility(t *testing.T) {
	srv, _ := newServer(t)
	manager := login(t, srv, "manager@example.com")
	client := login(t, srv, "client.a@example.com")

	code, env := call(t, srv, http.MethodGet, "/api/projects", manager, nil)
	if code != http.StatusOK || env.Count == nil || *env.Count != 2 {
		t.Fatalf("manager projects = %d count %v", code, env.Count)
	}

	code, env = call(t, srv, http.MethodGet, "/api/projects", client, nil)
	if code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("client projects = %d count %v", code, env.Count)
	}

	if code, _ := call(t, srv, http.MethodGet, "/api/projects/sample-project-b", client, nil); code != http.StatusNotFound {
		t.Errorf("other client's project status = %d, want 404", code)
	}
	if code, _ := call(t, srv, http.MethodGet, "/api/leads", client, nil); code != http.StatusForbidden {
		t.Errorf("client leads status = %d, want 403", code)
	}
	if code, _ := call(t, srv, http.MethodGet, "/api/leads", manager, nil); code != http.StatusOK {
		t.Errorf("manager leads status = %d", code)
	}
}

func TestPageLockConflict(t *testing.T) {
	srv, _ := newServer(t)
	designer := login(t, srv, "designer@example.com")
	manager := login(t, srv, "manager@example.com")

	if code, env := call(t, srv, http.MethodPost, "/api/pages/sample-page-1/lock", designer, nil); code != http.StatusOK {
		t.Fatalf("designer lock = %d (%s)", code, env.Message)
	}

	code, env := call(t, srv, http.MethodPost, "/api/pages/sample-page-1/lock", manager, nil)
	if code != http.StatusConflict {
		t.Fatalf("manager lock = %d, want 409", code)
	}
	var holder struct {
		HolderID   string `json:"holder_id"`
		HolderName string `json:"holder_name"`
	}
	if err := json.Unmarshal(env.Data, &holder); err != nil {
		t.Fatal(err)
	}
	if holder.HolderID != "sample-employee" || holder.HolderName != "Dana Designer" {
		t.Errorf("holder = %+v", holder)
	}

	if code, _ := call(t, srv, http.MethodDelete, "/api/pages/sample-page-1/lock", designer, nil); code != http.StatusOK {
		t.Fatalf("unlock = %d", code)
	}
	if code, _ := call(t, srv, http.MethodPost, "/api/pages/sample-page-1/lock", manager, nil); code != http.StatusOK {
		t.Errorf("manager lock after release = %d", code)
	}
}

func TestPublicLeadCapture(t *testing.T) {
	srv, _ := newServer(t)

	code, env := call(t, srv, http.MethodPost, "/api/public/leads", "", map[string]string{
		"name":  "Robin Visitor",
		"email": "robin@example.net",
	})
	if code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", code, env.Message)
	}
	var lead struct {
		Source string `json:"source"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &lead); err != nil {
		t.Fatal(err)
	}
	if lead.Source != "website" || lead.Status != "new" {
		t.Errorf("lead = %+v", lead)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t)
	code, env := call(t, srv, http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var health struct {
		Backend string `json:"backend"`
	}
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Backend != "local" {
		t.Errorf("backend = %q, want local", health.Backend)
	}
}

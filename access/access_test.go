package access

import (
	"errors"
	"testing"

	"clientdesk/models"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	manager  = Viewer{UserID: "m1", Role: models.RoleManager}
	employee = Viewer{UserID: "e1", Role: models.RoleEmployee}
	clientA  = Viewer{UserID: "c1", Role: models.RoleClient}
	clientB  = Viewer{UserID: "c2", Role: models.RoleClient}
)

func TestCanSeeProject(t *testing.T) {
	assigned := &models.Project{ID: "p1", ClientID: "c1", AssignedEmployees: []string{"e1"}}
	unassigned := &models.Project{ID: "p2", ClientID: "c2"}

	tests := []struct {
		name    string
		viewer  Viewer
		project *models.Project
		want    bool
	}{
		{"manager sees all", manager, unassigned, true},
		{"client sees own", clientA, assigned, true},
		{"client does not see other client", clientA, unassigned, false},
		{"employee sees assigned", employee, assigned, true},
		{"employee does not see unassigned", employee, unassigned, false},
		{"unknown role sees nothing", Viewer{UserID: "x", Role: "guest"}, assigned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanSeeProject(tt.viewer, tt.project); got != tt.want {
				t.Errorf("CanSeeProject = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectFilter(t *testing.T) {
	if f := ProjectFilter(manager); len(f) != 0 {
		t.Errorf("manager filter = %v, want empty", f)
	}
	if f := ProjectFilter(clientB); f["client_id"] != "c2" {
		t.Errorf("client filter = %v", f)
	}
	if f := ProjectFilter(employee); f["assigned_employees"] != "e1" {
		t.Errorf("employee filter = %v", f)
	}
}

func TestScope(t *testing.T) {
	projects := []models.Project{
		{ID: "p1", ClientID: "c1"},
		{ID: "p2", ClientID: "c2"},
	}
	if s := ScopeOf(manager, projects); s != nil || !s.Contains("anything") {
		t.Errorf("manager scope = %v, want unrestricted", s)
	}

	s := ScopeOf(clientA, projects)
	if !s.Contains("p1") || s.Contains("p2") {
		t.Errorf("client scope = %v", s)
	}
	in, ok := s.Filter("project_id")["project_id"].(bson.M)
	if !ok {
		t.Fatalf("filter = %v", s.Filter("project_id"))
	}
	if ids := in["$in"].([]string); len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("$in = %v", ids)
	}

	empty := ScopeOf(clientB, nil)
	if ids := empty.IDs(); ids == nil || len(ids) != 0 {
		t.Errorf("empty scope IDs = %#v, want non-nil empty", ids)
	}
}

func TestCanSeeUser(t *testing.T) {
	visible := []models.Project{{ID: "p1", ClientID: "c1", AssignedEmployees: []string{"e1"}}}

	if !CanSeeUser(clientA, &models.User{ID: "e1"}, visible) {
		t.Error("client should see the employee on their project")
	}
	if CanSeeUser(clientA, &models.User{ID: "c2"}, visible) {
		t.Error("client should not see another client")
	}
	if !CanSeeUser(clientB, &models.User{ID: "c2"}, nil) {
		t.Error("users always see themselves")
	}
}

func TestRights(t *testing.T) {
	tests := []struct {
		viewer Viewer
		action Action
		want   bool
	}{
		{manager, CreateProject, true},
		{employee, CreateProject, false},
		{clientA, ApproveStage, true},
		{employee, ApproveStage, false},
		{clientA, EditPage, false},
		{employee, EditPage, true},
		{clientA, ManageLeads, false},
		{employee, ViewDownloads, false},
	}
	for _, tt := range tests {
		if got := Can(tt.viewer, tt.action); got != tt.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tt.viewer.Role, tt.action, got, tt.want)
		}
	}
	if err := Require(clientA, ManageUsers); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("Require = %v, want ErrForbidden", err)
	}
	if !CanSeeLeads(employee) || CanSeeLeads(clientA) {
		t.Error("leads are visible to staff only")
	}
}

// Package access decides which rows a viewer may see and which mutations
// their role allows.
package access

import (
	"clientdesk/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Viewer is the identity every visibility and rights check is computed for.
type Viewer struct {
	UserID string
	Name   string
	Role   models.Role
}

func (v Viewer) IsManager() bool  { return v.Role == models.RoleManager }
func (v Viewer) IsEmployee() bool { return v.Role == models.RoleEmployee }
func (v Viewer) IsClient() bool   { return v.Role == models.RoleClient }

// CanSeeProject is the per-row project predicate.
func CanSeeProject(v Viewer, p *models.Project) bool {
	switch v.Role {
	case models.RoleManager:
		return true
	case models.RoleClient:
		return p.ClientID == v.UserID
	case models.RoleEmployee:
		return p.IsAssigned(v.UserID)
	}
	return false
}

// ProjectFilter is the query-level form of CanSeeProject. The second,
// in-process pass uses CanSeeProject on the returned rows.
func ProjectFilter(v Viewer) bson.M {
	switch v.Role {
	case models.RoleManager:
		return bson.M{}
	case models.RoleClient:
		return bson.M{"client_id": v.UserID}
	case models.RoleEmployee:
		// equality on an array field matches any element
		return bson.M{"assigned_employees": v.UserID}
	}
	return bson.M{"_id": bson.M{"$exists": false}}
}

// ProjectScope lists the project IDs a viewer may see. A nil scope means
// unrestricted (manager).
type ProjectScope map[string]struct{}

func ScopeOf(v Viewer, projects []models.Project) ProjectScope {
	if v.IsManager() {
		return nil
	}
	scope := ProjectScope{}
	for i := range projects {
		if CanSeeProject(v, &projects[i]) {
			scope[projects[i].ID] = struct{}{}
		}
	}
	return scope
}

func (s ProjectScope) Contains(projectID string) bool {
	if s == nil {
		return true
	}
	_, ok := s[projectID]
	return ok
}

// IDs returns the scope as a slice, or nil when unrestricted.
func (s ProjectScope) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Filter builds a query restricting field to the scope's project IDs.
func (s ProjectScope) Filter(field string) bson.M {
	if s == nil {
		return bson.M{}
	}
	return bson.M{field: bson.M{"$in": s.IDs()}}
}

// CanSeeLeads: leads are internal to the studio.
func CanSeeLeads(v Viewer) bool {
	return v.IsManager() || v.IsEmployee()
}

// CanSeeUser reports whether a user row is visible. Non-managers see
// themselves and the people on their visible projects.
func CanSeeUser(v Viewer, u *models.User, visible []models.Project) bool {
	if v.IsManager() || u.ID == v.UserID {
		return true
	}
	for i := range visible {
		p := &visible[i]
		if p.ClientID == u.ID || p.IsAssigned(u.ID) {
			return true
		}
	}
	return false
}

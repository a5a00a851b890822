package models

import "time"

const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
)

type Project struct {
	ID                string     `json:"id" bson:"_id"`
	Title             string     `json:"title" bson:"title" validate:"required,max=200"`
	Description       string     `json:"description" bson:"description"`
	ClientID          string     `json:"client_id" bson:"client_id" validate:"required"`
	ClientName        string     `json:"client_name" bson:"client_name"`
	AssignedEmployees []string   `json:"assigned_employees" bson:"assigned_employees"`
	Deadline          *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Progress          int        `json:"progress" bson:"progress" validate:"min=0,max=100"`
	Status            string     `json:"status" bson:"status" validate:"omitempty,oneof=planning active on_hold completed"`
	Priority          string     `json:"priority" bson:"priority" validate:"omitempty,oneof=low medium high urgent"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// IsAssigned reports whether userID is on the project's employee list.
func (p *Project) IsAssigned(userID string) bool {
	for _, id := range p.AssignedEmployees {
		if id == userID {
			return true
		}
	}
	return false
}

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// StageNames is the canonical, ordered set of phases every project goes through.
var StageNames = []string{
	"Discovery",
	"Concept",
	"Design",
	"Revisions",
	"Final Delivery",
}

type Stage struct {
	ID        string    `json:"id" bson:"_id"`
	ProjectID string    `json:"project_id" bson:"project_id"`
	Name      string    `json:"name" bson:"name"`
	Position  int       `json:"position" bson:"position"`
	Progress  int       `json:"progress" bson:"progress"`
	Approval  string    `json:"approval" bson:"approval"`
	Feedback  string    `json:"feedback" bson:"feedback"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

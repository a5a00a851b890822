package models

import "time"

const (
	TaskOpen       = "open"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

type Task struct {
	ID          string     `json:"id" bson:"_id"`
	ProjectID   string     `json:"project_id" bson:"project_id"`
	StageID     string     `json:"stage_id,omitempty" bson:"stage_id,omitempty"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Status      string     `json:"status" bson:"status"`
	AssigneeID  string     `json:"assignee_id,omitempty" bson:"assignee_id,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
	CreatedBy   string     `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// CommentTask is a review comment left on a project or stage that can be
// tracked to completion like a task.
type CommentTask struct {
	ID         string     `json:"id" bson:"_id"`
	ProjectID  string     `json:"project_id" bson:"project_id"`
	StageID    string     `json:"stage_id,omitempty" bson:"stage_id,omitempty"`
	Text       string     `json:"text" bson:"text"`
	AuthorID   string     `json:"author_id" bson:"author_id"`
	AuthorName string     `json:"author_name" bson:"author_name"`
	Status     string     `json:"status" bson:"status"`
	AssigneeID string     `json:"assignee_id,omitempty" bson:"assignee_id,omitempty"`
	Deadline   *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

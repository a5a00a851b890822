package models

import "time"

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Role     Role   `json:"role" validate:"required,oneof=manager employee client"`
}

type UpdateUserRequest struct {
	Name string `json:"name" validate:"omitempty,min=2,max=100"`
	Role Role   `json:"role" validate:"omitempty,oneof=manager employee client"`
}

type ProjectInput struct {
	Title             string     `json:"title" validate:"required,max=200"`
	Description       string     `json:"description"`
	ClientID          string     `json:"client_id" validate:"required"`
	AssignedEmployees []string   `json:"assigned_employees"`
	Deadline          *time.Time `json:"deadline"`
	Priority          string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// ProjectPatch carries optional fields; nil means unchanged.
type ProjectPatch struct {
	Title             *string    `json:"title" validate:"omitempty,max=200"`
	Description       *string    `json:"description"`
	AssignedEmployees []string   `json:"assigned_employees"`
	Deadline          *time.Time `json:"deadline"`
	Progress          *int       `json:"progress" validate:"omitempty,min=0,max=100"`
	Status            *string    `json:"status" validate:"omitempty,oneof=planning active on_hold completed"`
	Priority          *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type StageProgressRequest struct {
	Progress int `json:"progress" validate:"min=0,max=100"`
}

type StageApprovalRequest struct {
	Approval string `json:"approval" validate:"required,oneof=pending approved rejected"`
	Feedback string `json:"feedback"`
}

type TaskInput struct {
	StageID     string     `json:"stage_id"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	Status      string     `json:"status" validate:"omitempty,oneof=open in_progress done"`
	AssigneeID  string     `json:"assignee_id"`
	Deadline    *time.Time `json:"deadline"`
}

type CommentInput struct {
	StageID    string     `json:"stage_id"`
	Text       string     `json:"text" validate:"required"`
	AssigneeID string     `json:"assignee_id"`
	Deadline   *time.Time `json:"deadline"`
}

type StatusPatch struct {
	Status string `json:"status" validate:"required,oneof=open in_progress done"`
}

type FilePatch struct {
	Category *string  `json:"category" validate:"omitempty,oneof=document image design contract other"`
	Tags     []string `json:"tags"`
	Archived *bool    `json:"archived"`
}

type BrochureInput struct {
	Title     string `json:"title" validate:"required"`
	PageCount int    `json:"page_count" validate:"min=0,max=200"`
}

type PageContentRequest struct {
	Content PageContent `json:"content"`
}

type PageStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

type PageCommentInput struct {
	Text string `json:"text" validate:"required"`
}

type LeadPatch struct {
	Status *string `json:"status" validate:"omitempty,oneof=new contacted qualified won lost"`
	Notes  *string `json:"notes"`
	Phone  *string `json:"phone"`
}

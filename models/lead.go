package models

import "time"

type Lead struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Company   string    `json:"company" bson:"company"`
	Phone     string    `json:"phone" bson:"phone"`
	Source    string    `json:"source" bson:"source"`
	Status    string    `json:"status" bson:"status" validate:"omitempty,oneof=new contacted qualified won lost"`
	Notes     string    `json:"notes" bson:"notes"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type Meeting struct {
	ID          string    `json:"id" bson:"_id"`
	ProjectID   string    `json:"project_id" bson:"project_id" validate:"required"`
	Title       string    `json:"title" bson:"title" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" bson:"scheduled_at" validate:"required"`
	Attendees   []string  `json:"attendees" bson:"attendees"`
	Notes       string    `json:"notes" bson:"notes"`
	CreatedBy   string    `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

package models

import "time"

type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleEmployee, RoleClient:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email" validate:"required,email"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Role         Role      `json:"role" bson:"role" validate:"required,oneof=manager employee client"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

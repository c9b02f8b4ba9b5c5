package models

import "time"

type User struct {
	UserID       string    `json:"user_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	RoleID       int       `json:"role_id"`
	RoleName     string    `json:"role"`
	SpecialtyID  *int      `json:"specialty_id,omitempty"`
	Created      time.Time `json:"created_at"`
}

type Role struct {
	RoleID int    `json:"role_id"`
	Name   string `json:"name"`
}

type Specialty struct {
	SpecialtyID int    `json:"specialty_id"`
	Name        string `json:"name"`
}

const (
	RoleAdministrator = "administrator"
	RoleSecretary     = "secretary"
	RolePhysician     = "physician"
)

const (
	RoleIDAdministrator = 1
	RoleIDSecretary     = 2
	RoleIDPhysician     = 3
)

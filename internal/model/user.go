// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the fixed set of access levels a user can hold.
//
// The string values are part of the wire format and of stored records,
// so they must never be renamed.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleProfessor Role = "professor"
	RoleStudent   Role = "aluno"
)

// Roles lists every valid role, in the order they are presented to clients.
var Roles = []Role{RoleAdmin, RoleProfessor, RoleStudent}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return true
	}
	return false
}

// User represents a registered account.
//
// WHY PasswordHash HAS json:"-"?
// The hash must never leave the server. The "-" tag makes encoding/json skip
// the field entirely, so even handing a *User straight to writeJSON is safe.
//
// Discipline is the subject a professor teaches. It is set if and only if
// Role is RoleProfessor; the service layer enforces that.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Discipline   string    `json:"discipline,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the projection returned by the auth endpoints.
type PublicUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Discipline string `json:"discipline,omitempty"`
}

// Public strips timestamps and credentials from u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Discipline: u.Discipline,
	}
}

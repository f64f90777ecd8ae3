package models

import (
	"strings"
	"time"
)

const (
	UsersCollection = "users"
)

// Role governs access to moderation and admin-only operations.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// NormalizeEmail is applied at every read and write boundary of the users collection so that
// differently-cased stored values always match.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User represents a registered identity. Email is the natural key.
type User struct {
	ID        string    `json:"id" mapstructure:"id"`
	Name      string    `json:"name,omitempty" mapstructure:"name"`
	Email     string    `json:"email" mapstructure:"email"`
	PhotoURL  string    `json:"photoURL,omitempty" mapstructure:"photoURL"`
	Phone     string    `json:"phone,omitempty" mapstructure:"phone"`
	Role      Role      `json:"role" mapstructure:"role"`
	CreatedAt time.Time `json:"createdAt" mapstructure:"createdAt"`
}

// CreateUserRequest is the parameter struct for the RegisterUser function. Any role supplied by the
// client is ignored; new users always start as students.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	PhotoURL string `json:"photoURL"`
	Phone    string `json:"phone"`
}

// RegisterUserResult is returned by RegisterUser. InsertedID is nil when the user already existed.
type RegisterUserResult struct {
	Message    string  `json:"message,omitempty"`
	InsertedID *string `json:"insertedId"`
	Created    bool    `json:"created"`
}

// PromoteUserRequest is the parameter struct for the PromoteUser function.
type PromoteUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=student teacher admin"`
}

// TokenRequest is the payload signed by POST /jwt.
type TokenRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty"`
}

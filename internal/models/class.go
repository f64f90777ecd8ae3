package models

import "time"

const (
	ClassesCollection = "classes"
)

type ClassStatus string

const (
	ClassPending  ClassStatus = "pending"
	ClassApproved ClassStatus = "approved"
	ClassRejected ClassStatus = "rejected"
)

// Class is a course published by a teacher. EnrollmentCount is maintained by the server and mirrors
// the number of enrollments for the class on a best-effort basis.
type Class struct {
	ID              string      `json:"id" mapstructure:"id"`
	Title           string      `json:"title" mapstructure:"title"`
	Description     string      `json:"description,omitempty" mapstructure:"description"`
	Image           string      `json:"image,omitempty" mapstructure:"image"`
	Price           float64     `json:"price" mapstructure:"price"`
	OwnerEmail      string      `json:"email" mapstructure:"email"`
	OwnerName       string      `json:"name,omitempty" mapstructure:"name"`
	Status          ClassStatus `json:"status" mapstructure:"status"`
	EnrollmentCount int64       `json:"enrollmentCount" mapstructure:"enrollmentCount"`
	CreatedAt       time.Time   `json:"createdAt" mapstructure:"createdAt"`
}

// CreateClassRequest is the parameter struct for the CreateClass function.
type CreateClassRequest struct {
	// Will be set from the verified token
	OwnerEmail  string  `json:"-"`
	OwnerName   string  `json:"name"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price" validate:"gt=0"`
}

// ClassStatusRequest is the body of POST /classes/{id}/status.
type ClassStatusRequest struct {
	Status ClassStatus `json:"status" validate:"required,oneof=pending approved rejected"`
}

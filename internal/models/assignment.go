package models

import (
	"time"

	"classmaster/internal/docstore"
)

const (
	AssignmentsCollection = "assignments"
	SubmissionsCollection = "submissions"
)

// Assignment belongs to a class. SubmissionCount mirrors the number of submissions on a best-effort
// basis.
type Assignment struct {
	ID              string    `json:"id" mapstructure:"id"`
	ClassID         string    `json:"classId" mapstructure:"classId"`
	Title           string    `json:"title" mapstructure:"title"`
	Description     string    `json:"description,omitempty" mapstructure:"description"`
	Deadline        time.Time `json:"deadline" mapstructure:"deadline"`
	SubmissionCount int64     `json:"submissionCount" mapstructure:"submissionCount"`
	CreatedAt       time.Time `json:"createdAt" mapstructure:"createdAt"`
}

// CreateAssignmentRequest is the parameter struct for the CreateAssignment function.
type CreateAssignmentRequest struct {
	// Will be set from the verified token
	OwnerEmail  string    `json:"-"`
	ClassID     string    `json:"classId" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
}

type Submission struct {
	ID             string    `json:"id" mapstructure:"id"`
	AssignmentID   string    `json:"assignmentId" mapstructure:"assignmentId"`
	StudentEmail   string    `json:"studentEmail" mapstructure:"studentEmail"`
	SubmissionData string    `json:"submissionData" mapstructure:"submissionData"`
	Timestamp      time.Time `json:"timestamp" mapstructure:"timestamp"`
}

// SubmitAssignmentRequest is the parameter struct for the SubmitAssignment function.
type SubmitAssignmentRequest struct {
	AssignmentID   string `json:"assignmentId" validate:"required"`
	StudentEmail   string `json:"studentEmail" validate:"required,email"`
	SubmissionData string `json:"submissionData" validate:"required"`
}

// SubmitAssignmentResult always carries the submission id once it is stored. The counter outcome is
// reported separately: UpdateError is set when the increment failed.
type SubmitAssignmentResult struct {
	InsertedID   string                 `json:"insertedId"`
	UpdateResult *docstore.UpdateResult `json:"updateResult"`
	UpdateError  string                 `json:"updateError,omitempty"`
}

type SubmissionCount struct {
	TotalSubmissions int64 `json:"totalSubmissions"`
}

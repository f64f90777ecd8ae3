package models

import (
	"time"

	"classmaster/internal/docstore"
)

const (
	PromotionRequestsCollection = "teachOnClassMaster"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// PromotionRequest is an application to become a teacher. There is at most one per email; a new
// submission overwrites the payload and resets the status to pending.
type PromotionRequest struct {
	ID         string        `json:"id" mapstructure:"id"`
	Email      string        `json:"email" mapstructure:"email"`
	Name       string        `json:"name" mapstructure:"name"`
	PhotoURL   string        `json:"photoURL,omitempty" mapstructure:"photoURL"`
	Title      string        `json:"title" mapstructure:"title"`
	Category   string        `json:"category" mapstructure:"category"`
	Experience string        `json:"experience" mapstructure:"experience"`
	Status     RequestStatus `json:"status" mapstructure:"status"`
	CreatedAt  time.Time     `json:"createdAt" mapstructure:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt" mapstructure:"updatedAt"`
}

// SubmitPromotionRequest is the parameter struct for the SubmitPromotionRequest function.
type SubmitPromotionRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name"`
	PhotoURL   string `json:"photoURL"`
	Title      string `json:"title" validate:"required"`
	Category   string `json:"category" validate:"required"`
	Experience string `json:"experience"`
}

// SubmitPromotionResult reports whether the submission created a new request or reset an existing one.
type SubmitPromotionResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
	// PreviousStatus is set when an existing request was reset to pending.
	PreviousStatus RequestStatus `json:"previousStatus,omitempty"`
}

// ModerateRequest is the body of POST /updateTeacherRequest/{id}.
type ModerateRequest struct {
	Status RequestStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

// ModerationResult is returned by ModeratePromotionRequest.
type ModerationResult struct {
	Message       string                 `json:"message"`
	RequestUpdate docstore.UpdateResult  `json:"requestUpdate"`
	RoleUpdate    *docstore.UpdateResult `json:"roleUpdate,omitempty"`
}

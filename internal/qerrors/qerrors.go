package qerrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Authentication errors
	UnauthenticatedError = errors.New("missing authorization header")
	InvalidTokenError    = errors.New("invalid or expired token")

	// Authorization errors
	ForbiddenError = errors.New("forbidden access")

	// User errors
	UserNotFoundError = errors.New("user not found")
	InvalidEmailError = errors.New("invalid email address")
	InvalidRoleError  = errors.New("invalid role")

	// Promotion request errors
	RequestNotFoundError = errors.New("teacher request not found")

	// Class errors
	ClassNotFoundError      = errors.New("class not found")
	AssignmentNotFoundError = errors.New("assignment not found")

	// Generic
	InvalidBody = errors.New("invalid request body")
)

// ValidationError reports a malformed, missing or out-of-range request field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// InvalidTransitionError is returned when a moderation action is not allowed from the current status.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move request from %q to %q", e.From, e.To)
}

// PartialWorkflowError is returned when a multi-step workflow fails after at least one of its
// steps committed. Report carries the per-step outcome so callers can tell which artifacts exist.
type PartialWorkflowError struct {
	Workflow string
	Step     string
	Err      error
	Report   interface{}
}

func (e *PartialWorkflowError) Error() string {
	return fmt.Sprintf("%s workflow failed at step %q after committing earlier steps: %v", e.Workflow, e.Step, e.Err)
}

func (e *PartialWorkflowError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	for _, target := range []error{UserNotFoundError, RequestNotFoundError, ClassNotFoundError, AssignmentNotFoundError} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// HTTPStatus maps an error to the status code used to surface it.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	var transitionErr *InvalidTransitionError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, UnauthenticatedError), errors.Is(err, InvalidTokenError):
		return http.StatusUnauthorized
	case errors.Is(err, ForbiddenError):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &validationErr),
		errors.Is(err, InvalidBody), errors.Is(err, InvalidEmailError), errors.Is(err, InvalidRoleError):
		return http.StatusBadRequest
	case errors.As(err, &transitionErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package models

import "time"

const (
	EvaluationsCollection = "evaluations"
)

// Evaluation is a student's feedback on a class. ClassTitle is copied when the evaluation is written
// and is not updated if the class is renamed later.
type Evaluation struct {
	ID           string    `json:"id" mapstructure:"id"`
	ClassID      string    `json:"classId" mapstructure:"classId"`
	ClassTitle   string    `json:"classTitle" mapstructure:"classTitle"`
	StudentEmail string    `json:"studentEmail" mapstructure:"studentEmail"`
	StudentName  string    `json:"studentName,omitempty" mapstructure:"studentName"`
	Rating       int       `json:"rating" mapstructure:"rating"`
	Description  string    `json:"description" mapstructure:"description"`
	Timestamp    time.Time `json:"timestamp" mapstructure:"timestamp"`
}

// CreateEvaluationRequest is the parameter struct for the CreateEvaluation function.
type CreateEvaluationRequest struct {
	ClassID      string `json:"classId" validate:"required"`
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	StudentName  string `json:"studentName"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Description  string `json:"description" validate:"required"`
}

// RecountResult is returned by the counter reconciliation operations.
type RecountResult struct {
	ID       string `json:"id"`
	Previous int64  `json:"previous"`
	Current  int64  `json:"current"`
}

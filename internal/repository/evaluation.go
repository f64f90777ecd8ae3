package repository

import (
	"context"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/pkg/errors"
)

// CreateEvaluation stores a student's feedback with a copy of the class title as it is now.
func (r *Repository) CreateEvaluation(ctx context.Context, e *models.CreateEvaluationRequest) (*models.Evaluation, error) {
	if e.Rating < 1 || e.Rating > 5 {
		return nil, qerrors.NewValidationError("rating", "must be between 1 and 5")
	}

	class, err := r.GetClass(ctx, e.ClassID)
	if err != nil {
		return nil, err
	}

	evaluation := &models.Evaluation{
		ClassID:      class.ID,
		ClassTitle:   class.Title,
		StudentEmail: models.NormalizeEmail(e.StudentEmail),
		StudentName:  e.StudentName,
		Rating:       e.Rating,
		Description:  e.Description,
		Timestamp:    r.now(),
	}

	id, err := r.store.Insert(ctx, models.EvaluationsCollection, docstore.Document{
		"classId":      evaluation.ClassID,
		"classTitle":   evaluation.ClassTitle,
		"studentEmail": evaluation.StudentEmail,
		"studentName":  evaluation.StudentName,
		"rating":       evaluation.Rating,
		"description":  evaluation.Description,
		"timestamp":    evaluation.Timestamp,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating evaluation")
	}

	evaluation.ID = id
	return evaluation, nil
}

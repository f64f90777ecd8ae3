package repository

import (
	"context"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/pkg/errors"
)

// CreateClass stores a new class owned by the caller. Classes start pending with no enrollments.
func (r *Repository) CreateClass(ctx context.Context, c *models.CreateClassRequest) (*models.Class, error) {
	owner := models.NormalizeEmail(c.OwnerEmail)
	if owner == "" {
		return nil, qerrors.InvalidEmailError
	}
	if c.Title == "" {
		return nil, qerrors.NewValidationError("title", "required")
	}
	if c.Price <= 0 {
		return nil, qerrors.NewValidationError("price", "must be greater than zero")
	}

	class := &models.Class{
		Title:           c.Title,
		Description:     c.Description,
		Image:           c.Image,
		Price:           c.Price,
		OwnerEmail:      owner,
		OwnerName:       c.OwnerName,
		Status:          models.ClassPending,
		EnrollmentCount: 0,
		CreatedAt:       r.now(),
	}

	id, err := r.store.Insert(ctx, models.ClassesCollection, docstore.Document{
		"title":           class.Title,
		"description":     class.Description,
		"image":           class.Image,
		"price":           class.Price,
		"email":           class.OwnerEmail,
		"name":            class.OwnerName,
		"status":          string(class.Status),
		"enrollmentCount": class.EnrollmentCount,
		"createdAt":       class.CreatedAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating class")
	}

	class.ID = id
	return class, nil
}

func (r *Repository) GetClass(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	if err := r.findOne(ctx, models.ClassesCollection, docstore.ByID(id), qerrors.ClassNotFoundError, &class); err != nil {
		return nil, err
	}

	return &class, nil
}

// SetClassStatus is the admin review of a class.
func (r *Repository) SetClassStatus(ctx context.Context, id string, status models.ClassStatus) (docstore.UpdateResult, error) {
	switch status {
	case models.ClassPending, models.ClassApproved, models.ClassRejected:
	default:
		return docstore.UpdateResult{}, qerrors.NewValidationError("status", "must be pending, approved or rejected")
	}

	res, err := r.store.UpdateWhere(ctx, models.ClassesCollection, docstore.ByID(id), docstore.Document{
		"status": string(status),
	})
	if err != nil {
		return res, errors.Wrap(err, "updating class status")
	}
	if res.MatchedCount == 0 {
		return res, qerrors.ClassNotFoundError
	}

	return res, nil
}

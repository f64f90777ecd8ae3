package repository

import (
	"context"

	"classmaster/internal/docstore"
	"classmaster/internal/models"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// RecountClassEnrollments resets a class's enrollment count to the number of enrollments that
// reference it. It is the manual repair for an enrollment-payment workflow that stopped part way.
func (r *Repository) RecountClassEnrollments(ctx context.Context, classID string) (*models.RecountResult, error) {
	class, err := r.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	res, err := r.recount(ctx, models.ClassesCollection, class.ID, "enrollmentCount", class.EnrollmentCount,
		models.EnrollmentsCollection, docstore.Where("classId", class.ID))
	if err != nil {
		return nil, err
	}

	// Every enrollment is now reflected in the count; resubmitting its payment must not add it again.
	if _, err := r.store.UpdateWhere(ctx, models.EnrollmentsCollection, docstore.Where("classId", class.ID), docstore.Document{"counted": true}); err != nil {
		return nil, errors.Wrap(err, "marking enrollments counted")
	}

	return res, nil
}

// RecountAssignmentSubmissions resets an assignment's submission count to its number of submissions.
func (r *Repository) RecountAssignmentSubmissions(ctx context.Context, assignmentID string) (*models.RecountResult, error) {
	assignment, err := r.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return r.recount(ctx, models.AssignmentsCollection, assignment.ID, "submissionCount", assignment.SubmissionCount,
		models.SubmissionsCollection, docstore.Where("assignmentId", assignment.ID))
}

func (r *Repository) recount(ctx context.Context, collection, id, field string, previous int64, children string, filter docstore.Filter) (*models.RecountResult, error) {
	n, err := r.store.Count(ctx, children, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "counting %s", children)
	}

	if _, err := r.store.UpdateWhere(ctx, collection, docstore.ByID(id), docstore.Document{field: n}); err != nil {
		return nil, errors.Wrapf(err, "resetting %s", field)
	}
	if n != previous {
		glog.Warningf("%s %s: %s drifted from %d to %d\n", collection, id, field, previous, n)
	}

	return &models.RecountResult{ID: id, Previous: previous, Current: n}, nil
}

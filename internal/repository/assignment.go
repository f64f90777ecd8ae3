package repository

import (
	"context"
	"sync/atomic"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"
	"classmaster/internal/saga"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	submissionWorkflow = "assignment-submission"

	stepSubmission        = "submission"
	stepSubmissionCounter = "submission-counter"
)

// CreateAssignment adds an assignment to a class owned by the caller.
func (r *Repository) CreateAssignment(ctx context.Context, c *models.CreateAssignmentRequest) (*models.Assignment, error) {
	if c.Title == "" {
		return nil, qerrors.NewValidationError("title", "required")
	}

	class, err := r.GetClass(ctx, c.ClassID)
	if err != nil {
		return nil, err
	}
	if class.OwnerEmail != models.NormalizeEmail(c.OwnerEmail) {
		return nil, qerrors.ForbiddenError
	}

	assignment := &models.Assignment{
		ClassID:         class.ID,
		Title:           c.Title,
		Description:     c.Description,
		Deadline:        c.Deadline,
		SubmissionCount: 0,
		CreatedAt:       r.now(),
	}

	id, err := r.store.Insert(ctx, models.AssignmentsCollection, docstore.Document{
		"classId":         assignment.ClassID,
		"title":           assignment.Title,
		"description":     assignment.Description,
		"deadline":        assignment.Deadline,
		"submissionCount": assignment.SubmissionCount,
		"createdAt":       assignment.CreatedAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating assignment")
	}

	assignment.ID = id
	return assignment, nil
}

func (r *Repository) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.findOne(ctx, models.AssignmentsCollection, docstore.ByID(id), qerrors.AssignmentNotFoundError, &assignment); err != nil {
		return nil, err
	}

	return &assignment, nil
}

func (r *Repository) ListAssignments(ctx context.Context, classID string) ([]*models.Assignment, error) {
	docs, err := r.store.Find(ctx, models.AssignmentsCollection, docstore.Where("classId", classID))
	if err != nil {
		return nil, errors.Wrap(err, "listing assignments")
	}

	assignments := make([]*models.Assignment, 0, len(docs))
	for _, doc := range docs {
		var a models.Assignment
		if err := docstore.Decode(doc, &a); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}

	return assignments, nil
}

// SubmitAssignment stores a submission and then increments the assignment's submission count. Once
// the submission is stored the call succeeds; a failed increment is reported in the result only.
func (r *Repository) SubmitAssignment(ctx context.Context, s *models.SubmitAssignmentRequest) (*models.SubmitAssignmentResult, error) {
	email := models.NormalizeEmail(s.StudentEmail)
	switch {
	case s.AssignmentID == "":
		return nil, qerrors.NewValidationError("assignmentId", "required")
	case email == "":
		return nil, qerrors.NewValidationError("studentEmail", "required")
	}

	result := &models.SubmitAssignmentResult{}
	steps := []saga.Step{
		{
			Name: stepSubmission,
			Run: func(ctx context.Context) (saga.Outcome, error) {
				id, err := r.store.Insert(ctx, models.SubmissionsCollection, docstore.Document{
					"assignmentId":   s.AssignmentID,
					"studentEmail":   email,
					"submissionData": s.SubmissionData,
					"timestamp":      r.now(),
				})
				if err != nil {
					return saga.Outcome{}, errors.Wrap(err, "creating submission")
				}
				result.InsertedID = id
				return saga.Outcome{ArtifactID: id}, nil
			},
		},
		{
			Name:       stepSubmissionCounter,
			BestEffort: true,
			Run: func(ctx context.Context) (saga.Outcome, error) {
				res, err := r.store.IncrementWhere(ctx, models.AssignmentsCollection, docstore.ByID(s.AssignmentID), "submissionCount", 1)
				result.UpdateResult = &res
				if err != nil {
					return saga.Outcome{}, errors.Wrap(err, "incrementing submission count")
				}
				if res.MatchedCount == 0 {
					return saga.Outcome{}, qerrors.AssignmentNotFoundError
				}
				return saga.Outcome{ArtifactID: s.AssignmentID, Detail: res}, nil
			},
		},
	}

	report, err := saga.Run(ctx, submissionWorkflow, steps)
	if err != nil {
		return nil, err
	}
	if failed, ok := report.Failed(); ok {
		result.UpdateError = failed.Error
	}

	return result, nil
}

// CountClassSubmissions totals the submissions across every assignment of a class.
func (r *Repository) CountClassSubmissions(ctx context.Context, classID string) (int64, error) {
	assignments, err := r.store.Find(ctx, models.AssignmentsCollection, docstore.Where("classId", classID))
	if err != nil {
		return 0, errors.Wrap(err, "listing assignments")
	}

	var total int64
	eg, egCtx := errgroup.WithContext(ctx)
	for _, batch := range batches(ids(assignments), inBatchSize) {
		batch := batch
		eg.Go(func() error {
			n, err := r.store.Count(egCtx, models.SubmissionsCollection, docstore.In("assignmentId", batch))
			if err != nil {
				return errors.Wrap(err, "counting submissions")
			}
			atomic.AddInt64(&total, n)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	return total, nil
}

package repository

import (
	"context"
	"sync"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"
	"classmaster/internal/saga"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	enrollmentWorkflow = "enrollment-payment"

	stepPayment      = "payment"
	stepEnrollment   = "enrollment"
	stepClassCounter = "class-counter"
)

// SavePayment records a confirmed payment: the payment itself, the enrollment, and the class's
// enrollment counter, in that order. Steps are independent writes and are never rolled back.
//
// Submitting the same transaction again resumes from the first missing artifact. The enrollment
// carries a counted flag so the counter is applied at most once per enrollment, except when a failure
// lands between the increment and the flag write; the recount operation repairs that drift.
func (r *Repository) SavePayment(ctx context.Context, req *models.SavePaymentRequest) (*models.SavePaymentResult, error) {
	email := models.NormalizeEmail(req.Email)
	switch {
	case req.TransactionID == "":
		return nil, qerrors.NewValidationError("transactionId", "required")
	case email == "":
		return nil, qerrors.NewValidationError("email", "required")
	case req.ClassID == "":
		return nil, qerrors.NewValidationError("classId", "required")
	case req.Price <= 0:
		return nil, qerrors.NewValidationError("price", "must be greater than zero")
	}

	result := &models.SavePaymentResult{}
	var enrollment models.Enrollment

	steps := []saga.Step{
		{
			Name: stepPayment,
			Run: func(ctx context.Context) (saga.Outcome, error) {
				id, existed, err := r.insertOnce(ctx, models.PaymentsCollection, req.TransactionID, docstore.Document{
					"transactionId": req.TransactionID,
					"email":         email,
					"classId":       req.ClassID,
					"className":     req.ClassName,
					"price":         req.Price,
					"date":          r.now(),
				})
				if err != nil {
					return saga.Outcome{}, err
				}
				result.PaymentID = id
				return outcome(id, existed), nil
			},
		},
		{
			Name: stepEnrollment,
			Run: func(ctx context.Context) (saga.Outcome, error) {
				err := r.findOne(ctx, models.EnrollmentsCollection, docstore.Where("transactionId", req.TransactionID), docstore.ErrNotFound, &enrollment)
				if err == nil {
					result.EnrollmentID = enrollment.ID
					return outcome(enrollment.ID, true), nil
				}
				if !errors.Is(err, docstore.ErrNotFound) {
					return saga.Outcome{}, err
				}

				id, err := r.store.Insert(ctx, models.EnrollmentsCollection, docstore.Document{
					"transactionId": req.TransactionID,
					"email":         email,
					"classId":       req.ClassID,
					"className":     req.ClassName,
					"counted":       false,
					"date":          r.now(),
				})
				if err != nil {
					return saga.Outcome{}, errors.Wrap(err, "creating enrollment")
				}
				enrollment = models.Enrollment{ID: id, TransactionID: req.TransactionID, Email: email, ClassID: req.ClassID}
				result.EnrollmentID = id
				return outcome(id, false), nil
			},
		},
		{
			Name: stepClassCounter,
			Run: func(ctx context.Context) (saga.Outcome, error) {
				if enrollment.Counted {
					return saga.Outcome{Status: saga.StatusSkipped, ArtifactID: req.ClassID}, nil
				}

				res, err := r.store.IncrementWhere(ctx, models.ClassesCollection, docstore.ByID(req.ClassID), "enrollmentCount", 1)
				if err != nil {
					return saga.Outcome{}, errors.Wrap(err, "incrementing enrollment count")
				}
				if res.MatchedCount == 0 {
					return saga.Outcome{}, qerrors.ClassNotFoundError
				}
				result.UpdateResult = &res

				if _, err := r.store.UpdateWhere(ctx, models.EnrollmentsCollection, docstore.ByID(enrollment.ID), docstore.Document{"counted": true}); err != nil {
					glog.Warningf("enrollment %s counted but flag not saved: %v\n", enrollment.ID, err)
				}
				return saga.Outcome{ArtifactID: req.ClassID, Detail: res}, nil
			},
		},
	}

	report, err := saga.Run(ctx, enrollmentWorkflow, steps)
	result.Report = report
	if err != nil {
		return result, err
	}

	return result, nil
}

// insertOnce inserts doc unless a document with the same transaction id exists.
func (r *Repository) insertOnce(ctx context.Context, collection, transactionID string, doc docstore.Document) (string, bool, error) {
	existing, err := r.store.FindOne(ctx, collection, docstore.Where("transactionId", transactionID))
	if err == nil {
		id, _ := existing[docstore.IDField].(string)
		return id, true, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return "", false, errors.Wrapf(err, "querying %s", collection)
	}

	id, err := r.store.Insert(ctx, collection, doc)
	if err != nil {
		return "", false, errors.Wrapf(err, "inserting into %s", collection)
	}

	return id, false, nil
}

func outcome(id string, existed bool) saga.Outcome {
	if existed {
		return saga.Outcome{Status: saga.StatusSkipped, ArtifactID: id}
	}
	return saga.Outcome{Status: saga.StatusDone, ArtifactID: id}
}

// MyEnrolledClasses resolves the enrollments of email into class documents. Classes that no longer
// exist are dropped from the result without error.
func (r *Repository) MyEnrolledClasses(ctx context.Context, email string) ([]*models.Class, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, qerrors.InvalidEmailError
	}

	enrollments, err := r.store.Find(ctx, models.EnrollmentsCollection, docstore.Where("email", email))
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}

	classIDs := make([]string, 0, len(enrollments))
	for _, doc := range enrollments {
		if id, ok := doc["classId"].(string); ok {
			classIDs = append(classIDs, id)
		}
	}
	classIDs = distinct(classIDs)

	var mu sync.Mutex
	found := make(map[string]*models.Class, len(classIDs))

	eg, egCtx := errgroup.WithContext(ctx)
	for _, batch := range batches(classIDs, inBatchSize) {
		batch := batch
		eg.Go(func() error {
			docs, err := r.store.Find(egCtx, models.ClassesCollection, docstore.In(docstore.IDField, batch))
			if err != nil {
				return errors.Wrap(err, "loading enrolled classes")
			}

			for _, doc := range docs {
				var class models.Class
				if err := docstore.Decode(doc, &class); err != nil {
					return err
				}
				mu.Lock()
				found[class.ID] = &class
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	classes := make([]*models.Class, 0, len(found))
	for _, id := range classIDs {
		if class, ok := found[id]; ok {
			classes = append(classes, class)
		}
	}

	return classes, nil
}

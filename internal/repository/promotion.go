package repository

import (
	"context"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"
	"classmaster/internal/saga"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	moderationWorkflow = "promotion-moderation"

	stepRequestStatus = "request-status"
	stepPromoteRole   = "promote-role"
)

// SubmitPromotionRequest stores an application to become a teacher. An email keeps a single request:
// reapplying overwrites the stored payload and resets the status to pending, whatever it was.
func (r *Repository) SubmitPromotionRequest(ctx context.Context, req *models.SubmitPromotionRequest) (*models.SubmitPromotionResult, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, qerrors.InvalidEmailError
	}

	now := r.now()
	fields := docstore.Document{
		"email":      email,
		"name":       req.Name,
		"photoURL":   req.PhotoURL,
		"title":      req.Title,
		"category":   req.Category,
		"experience": req.Experience,
		"status":     string(models.RequestPending),
		"updatedAt":  now,
	}

	var existing models.PromotionRequest
	err := r.findOne(ctx, models.PromotionRequestsCollection, docstore.Where("email", email), qerrors.RequestNotFoundError, &existing)
	switch {
	case err == nil:
		if _, err := r.store.UpdateWhere(ctx, models.PromotionRequestsCollection, docstore.ByID(existing.ID), fields); err != nil {
			return nil, errors.Wrap(err, "resetting teacher request")
		}
		return &models.SubmitPromotionResult{ID: existing.ID, PreviousStatus: existing.Status}, nil
	case !errors.Is(err, qerrors.RequestNotFoundError):
		return nil, err
	}

	fields["createdAt"] = now
	id, err := r.store.Insert(ctx, models.PromotionRequestsCollection, fields)
	if err != nil {
		return nil, errors.Wrap(err, "creating teacher request")
	}

	return &models.SubmitPromotionResult{ID: id, Created: true}, nil
}

// ListPromotionRequests returns requests, optionally filtered by requester email and status.
func (r *Repository) ListPromotionRequests(ctx context.Context, email string, status models.RequestStatus) ([]*models.PromotionRequest, error) {
	filter := docstore.Filter{}
	if email = models.NormalizeEmail(email); email != "" {
		filter = filter.And("email", email)
	}
	if status != "" {
		filter = filter.And("status", string(status))
	}

	docs, err := r.store.Find(ctx, models.PromotionRequestsCollection, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing teacher requests")
	}

	requests := make([]*models.PromotionRequest, 0, len(docs))
	for _, doc := range docs {
		var req models.PromotionRequest
		if err := docstore.Decode(doc, &req); err != nil {
			return nil, err
		}
		requests = append(requests, &req)
	}

	return requests, nil
}

func (r *Repository) GetPromotionRequest(ctx context.Context, id string) (*models.PromotionRequest, error) {
	var req models.PromotionRequest
	if err := r.findOne(ctx, models.PromotionRequestsCollection, docstore.ByID(id), qerrors.RequestNotFoundError, &req); err != nil {
		return nil, err
	}

	return &req, nil
}

// ModeratePromotionRequest moves a request to accepted or rejected. Accepting then promotes the
// requester to teacher as a second, separate write. Accepting an accepted request runs the promotion
// again, which repairs a request whose earlier promotion failed.
func (r *Repository) ModeratePromotionRequest(ctx context.Context, id string, status models.RequestStatus) (*models.ModerationResult, error) {
	if status != models.RequestAccepted && status != models.RequestRejected {
		return nil, qerrors.NewValidationError("status", "must be accepted or rejected")
	}

	req, err := r.GetPromotionRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(req.Status, status); err != nil {
		return nil, err
	}

	result := &models.ModerationResult{Message: "Request updated successfully"}
	steps := []saga.Step{{
		Name: stepRequestStatus,
		Run: func(ctx context.Context) (saga.Outcome, error) {
			if req.Status == status {
				result.RequestUpdate = docstore.UpdateResult{MatchedCount: 1}
				return saga.Outcome{Status: saga.StatusSkipped, ArtifactID: id}, nil
			}
			res, err := r.store.UpdateWhere(ctx, models.PromotionRequestsCollection, docstore.ByID(id), docstore.Document{
				"status":    string(status),
				"updatedAt": r.now(),
			})
			if err != nil {
				return saga.Outcome{}, errors.Wrap(err, "updating teacher request")
			}
			if res.MatchedCount == 0 {
				return saga.Outcome{}, qerrors.RequestNotFoundError
			}
			result.RequestUpdate = res
			return saga.Outcome{ArtifactID: id, Detail: res}, nil
		},
	}}

	if status == models.RequestAccepted {
		steps = append(steps, saga.Step{
			Name: stepPromoteRole,
			Run: func(ctx context.Context) (saga.Outcome, error) {
				res, skipped, err := r.promoteToTeacher(ctx, req.Email)
				if err != nil {
					return saga.Outcome{}, err
				}
				result.RoleUpdate = &res
				if skipped {
					return saga.Outcome{Status: saga.StatusSkipped, ArtifactID: req.Email, Detail: res}, nil
				}
				return saga.Outcome{ArtifactID: req.Email, Detail: res}, nil
			},
		})
	}

	if _, err := saga.Run(ctx, moderationWorkflow, steps); err != nil {
		return result, err
	}

	return result, nil
}

// promoteToTeacher is a no-op for users who already are teachers or admins.
func (r *Repository) promoteToTeacher(ctx context.Context, email string) (docstore.UpdateResult, bool, error) {
	user, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		return docstore.UpdateResult{}, false, err
	}
	if user.Role == models.RoleTeacher || user.Role == models.RoleAdmin {
		glog.Infof("%s already has role %s, skipping promotion\n", user.Email, user.Role)
		return docstore.UpdateResult{MatchedCount: 1}, true, nil
	}

	res, err := r.PromoteUser(ctx, user.Email, models.RoleTeacher)
	return res, false, err
}

func checkTransition(from, to models.RequestStatus) error {
	switch {
	case from == models.RequestPending, from == "":
		return nil
	case from == to:
		return nil
	default:
		return &qerrors.InvalidTransitionError{From: string(from), To: string(to)}
	}
}

package repository

import (
	"context"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/pkg/errors"
)

const userExistsMessage = "user already exist"

// RegisterUser creates a user with the student role. Registering an email that already exists is a
// no-op reported with Created set to false.
func (r *Repository) RegisterUser(ctx context.Context, req *models.CreateUserRequest) (*models.RegisterUserResult, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, qerrors.InvalidEmailError
	}

	_, err := r.store.FindOne(ctx, models.UsersCollection, docstore.Where("email", email))
	if err == nil {
		return &models.RegisterUserResult{Message: userExistsMessage}, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, errors.Wrap(err, "looking up user")
	}

	id, err := r.store.Insert(ctx, models.UsersCollection, docstore.Document{
		"name":      req.Name,
		"email":     email,
		"photoURL":  req.PhotoURL,
		"phone":     req.Phone,
		"role":      string(models.RoleStudent),
		"createdAt": r.now(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating user")
	}

	return &models.RegisterUserResult{InsertedID: &id, Created: true}, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, qerrors.InvalidEmailError
	}

	var user models.User
	if err := r.findOne(ctx, models.UsersCollection, docstore.Where("email", email), qerrors.UserNotFoundError, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetRole returns the stored role for email.
func (r *Repository) GetRole(ctx context.Context, email string) (models.Role, error) {
	user, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	return user.Role, nil
}

// IsAdmin reports whether email belongs to an admin. Unknown users are not admins.
func (r *Repository) IsAdmin(ctx context.Context, email string) (bool, error) {
	role, err := r.GetRole(ctx, email)
	if errors.Is(err, qerrors.UserNotFoundError) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return role == models.RoleAdmin, nil
}

// PromoteUser overwrites the role of the user with the given email.
func (r *Repository) PromoteUser(ctx context.Context, email string, role models.Role) (docstore.UpdateResult, error) {
	if !role.Valid() {
		return docstore.UpdateResult{}, qerrors.InvalidRoleError
	}
	email = models.NormalizeEmail(email)
	if email == "" {
		return docstore.UpdateResult{}, qerrors.InvalidEmailError
	}

	res, err := r.store.UpdateWhere(ctx, models.UsersCollection, docstore.Where("email", email), docstore.Document{
		"role": string(role),
	})
	if err != nil {
		return res, errors.Wrap(err, "updating user role")
	}
	if res.MatchedCount == 0 {
		return res, qerrors.UserNotFoundError
	}

	return res, nil
}

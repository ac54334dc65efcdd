package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/edublog/internal/apperror"
	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/model"
	"github.com/sakif/edublog/internal/repository"
)

// NewUserInput is the payload for creating an account, either through
// self-registration or by an admin.
type NewUserInput struct {
	Name       string     `json:"name" validate:"required"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password"`
	Role       model.Role `json:"role" validate:"oneof=admin professor aluno"`
	Discipline string     `json:"discipline"`
}

// normalize trims free-text fields and applies the default role.
func (in *NewUserInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Discipline = strings.TrimSpace(in.Discipline)
	if in.Role == "" {
		in.Role = model.RoleStudent
	}
}

// UserPatch is an admin update. Nil fields are left unchanged.
type UserPatch struct {
	Name       *string     `json:"name"`
	Email      *string     `json:"email"`
	Role       *model.Role `json:"role"`
	Discipline *string     `json:"discipline"`
}

// ProfileUpdate is a self-service update. Nil fields are left unchanged;
// an empty NewPassword means the password is not being changed.
type ProfileUpdate struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Discipline      *string `json:"discipline"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

// userFields is the validated shape of a user after any change is applied.
type userFields struct {
	Name  string     `json:"name" validate:"required"`
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"oneof=admin professor aluno"`
}

func validateUser(u *model.User) error {
	if err := validateStruct(userFields{Name: u.Name, Email: u.Email, Role: u.Role}); err != nil {
		return err
	}
	return checkDiscipline(u.Role, u.Discipline)
}

// UserService handles account management: admin CRUD plus the
// self-service profile and password flows.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// createUser validates in, rejects a taken email, hashes the password and
// stores the new user. Shared by registration and admin creation.
func createUser(
	ctx context.Context,
	users repository.UserRepository,
	passwords *auth.PasswordService,
	in NewUserInput,
) (*model.User, error) {
	in.normalize()

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkPassword("password", in.Password); err != nil {
		return nil, err
	}
	if err := checkDiscipline(in.Role, in.Discipline); err != nil {
		return nil, err
	}

	if err := ensureEmailFree(ctx, users, in.Email, ""); err != nil {
		return nil, err
	}

	hash, err := passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Discipline:   in.Discipline,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// ensureEmailFree fails with a validation error if email belongs to any
// user other than exceptID.
func ensureEmailFree(ctx context.Context, users repository.UserRepository, email, exceptID string) error {
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking email: %w", err)
	case existing.ID != exceptID:
		return apperror.ValidationFailed("email", "email already in use")
	}
	return nil
}

// List returns every user, newest first.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetByID returns a single user or apperror.ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, strings.TrimSpace(id))
}

// Create adds a user on behalf of an admin. Unlike registration, no token
// is issued.
func (s *UserService) Create(ctx context.Context, in NewUserInput) (*model.User, error) {
	user, err := createUser(ctx, s.users, s.passwords, in)
	if err != nil {
		if isUnexpected(err) {
			s.logger.Error("failed to create user", slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.logger.Info("user created by admin",
		slog.String("id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Update applies an admin's changes to any user. The password hash is
// never touched here.
//
// Moving a user away from the professor role clears their discipline
// unless the patch sets it explicitly.
func (s *UserService) Update(ctx context.Context, id string, patch UserPatch) (*model.User, error) {
	user, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Role != nil {
		user.Role = *patch.Role
		if user.Role != model.RoleProfessor && patch.Discipline == nil {
			user.Discipline = ""
		}
	}
	if patch.Discipline != nil {
		user.Discipline = strings.TrimSpace(*patch.Discipline)
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}
	if err := ensureEmailFree(ctx, s.users, user.Email, user.ID); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		if isUnexpected(err) {
			s.logger.Error("failed to update user",
				slog.String("id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated by admin", slog.String("id", user.ID))
	return user, nil
}

// Delete removes a user. Their posts remain, with a dangling author.
func (s *UserService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}

// UpdateProfile is the self-service update.
//
// RULES (all checked before anything is written):
//   - the caller may only edit their own record (403 otherwise)
//   - name is always editable
//   - email may only be changed by an admin
//   - discipline may only be changed by a professor
//   - a new password requires the current one; a wrong current password
//     is 401 and leaves the stored hash untouched
func (s *UserService) UpdateProfile(ctx context.Context, caller auth.Principal, id string, in ProfileUpdate) (*model.User, error) {
	id = strings.TrimSpace(id)
	if caller.ID != id {
		return nil, apperror.Forbidden("you can only update your own profile")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}

	if in.Email != nil {
		if email := strings.TrimSpace(*in.Email); email != user.Email {
			if caller.Role != model.RoleAdmin {
				return nil, apperror.Forbidden("only administrators can change email")
			}
			user.Email = email
		}
	}

	if in.Discipline != nil {
		if discipline := strings.TrimSpace(*in.Discipline); discipline != user.Discipline {
			if caller.Role != model.RoleProfessor {
				return nil, apperror.Forbidden("only professors can change discipline")
			}
			user.Discipline = discipline
		}
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}
	if err := ensureEmailFree(ctx, s.users, user.Email, user.ID); err != nil {
		return nil, err
	}

	passwordChanged := false
	if in.NewPassword != "" || in.CurrentPassword != "" {
		hash, err := s.replacePassword(user, in.CurrentPassword, in.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	if err := s.users.Update(ctx, user); err != nil {
		if isUnexpected(err) {
			s.logger.Error("failed to update profile",
				slog.String("id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated",
		slog.String("id", user.ID),
		slog.Bool("passwordChanged", passwordChanged),
	)
	return user, nil
}

// ChangePassword is UpdateProfile restricted to the password fields.
func (s *UserService) ChangePassword(ctx context.Context, caller auth.Principal, id, currentPassword, newPassword string) error {
	if err := checkPassword("newPassword", newPassword); err != nil {
		return err
	}

	_, err := s.UpdateProfile(ctx, caller, id, ProfileUpdate{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	return err
}

// replacePassword verifies current against the stored hash and returns
// the hash of next.
func (s *UserService) replacePassword(user *model.User, current, next string) (string, error) {
	if current == "" {
		return "", apperror.ValidationFailed("currentPassword", "currentPassword is required")
	}
	if err := checkPassword("newPassword", next); err != nil {
		return "", err
	}

	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("password change rejected", slog.String("id", user.ID))
			return "", apperror.Unauthenticated("current password is incorrect")
		}
		return "", fmt.Errorf("verifying current password: %w", err)
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return "", fmt.Errorf("hashing new password: %w", err)
	}
	return hash, nil
}

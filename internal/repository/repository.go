// Package repository declares the storage contracts the service layer
// depends on. Implementations live in subpackages (see repository/sqlite).
//
// Every method returns apperror.NotFound when the addressed record does not
// exist, so callers can rely on errors.Is(err, apperror.ErrNotFound)
// regardless of the backend.
package repository

import (
	"context"

	"github.com/sakif/edublog/internal/model"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// Create assigns ID and timestamps. A duplicate email yields a
	// validation error.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns all users, newest first.
	List(ctx context.Context) ([]model.User, error)
	// Update overwrites every mutable column, including the password hash,
	// and refreshes UpdatedAt.
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// PostRepository persists posts. Reads return posts with Author populated.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// List returns all posts, newest first.
	List(ctx context.Context) ([]model.Post, error)
	// Search returns posts whose title or content contains term, ignoring
	// case, newest first. term is matched literally.
	Search(ctx context.Context, term string) ([]model.Post, error)
	// Update overwrites title and content and refreshes UpdatedAt. The
	// author is never changed.
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

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

// PostInput is the body of POST /api/posts.
//
// Content may contain HTML and is stored exactly as sent; only the title is
// trimmed.
type PostInput struct {
	Title   string `json:"title" validate:"required,max=100"`
	Content string `json:"content" validate:"required"`
}

// PostPatch is the body of PUT /api/posts/{id}. Nil fields are left unchanged.
type PostPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// authorRoles may create posts and edit or delete them subject to the
// ownership gate.
var authorRoles = []model.Role{model.RoleProfessor, model.RoleAdmin}

// PostService handles business logic for blog posts.
//
// Reads are public. Writes need a principal with an author role, and
// updates and deletes additionally need that principal to own the post or
// be an admin.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		logger: logger,
	}
}

// List returns every post, newest first, with authors populated.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// Search returns posts whose title or content contains q, ignoring case.
func (s *PostService) Search(ctx context.Context, q string) ([]model.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.ValidationFailed("q", "search term is required")
	}

	posts, err := s.posts.Search(ctx, q)
	if err != nil {
		s.logger.Error("failed to search posts",
			slog.String("q", q),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching posts: %w", err)
	}
	return posts, nil
}

// GetByID returns one post. Unknown and malformed IDs both yield
// apperror.ErrNotFound.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, strings.TrimSpace(id))
}

// Create stores a new post authored by the caller. The author always comes
// from the principal, never from the request body.
func (s *PostService) Create(ctx context.Context, caller auth.Principal, in PostInput) (*model.Post, error) {
	if !caller.HasRole(authorRoles...) {
		return nil, apperror.Forbidden("only professors and admins can create posts")
	}

	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	// The token proves who the caller was when it was issued; the account
	// may have been deleted since.
	author, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("author", "author must reference an existing user")
		}
		return nil, fmt.Errorf("looking up author: %w", err)
	}

	post := &model.Post{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: author.ID,
		Author: &model.PostAuthor{
			ID:    author.ID,
			Name:  author.Name,
			Email: author.Email,
		},
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("author", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author", author.ID),
	)
	return post, nil
}

// Update changes a post's title and/or content.
//
// ORDER OF CHECKS:
//  1. role gate          → 403
//  2. load the post      → 404 (ownership is meaningless for a missing post)
//  3. ownership gate     → 403
//  4. validate new state → 400
//  5. write
func (s *PostService) Update(ctx context.Context, caller auth.Principal, id string, patch PostPatch) (*model.Post, error) {
	post, err := s.loadForMutation(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		post.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		post.Content = *patch.Content
	}

	if err := validateStruct(PostInput{Title: post.Title, Content: post.Content}); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if isUnexpected(err) {
			s.logger.Error("failed to update post",
				slog.String("id", post.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID),
		slog.String("by", caller.ID),
	)
	return post, nil
}

// Delete removes a post, under the same gates as Update.
func (s *PostService) Delete(ctx context.Context, caller auth.Principal, id string) error {
	post, err := s.loadForMutation(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if isUnexpected(err) {
			s.logger.Error("failed to delete post",
				slog.String("id", post.ID),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted",
		slog.String("id", post.ID),
		slog.String("by", caller.ID),
	)
	return nil
}

// loadForMutation runs the role gate, loads the post and runs the
// ownership gate.
func (s *PostService) loadForMutation(ctx context.Context, caller auth.Principal, id string) (*model.Post, error) {
	if !caller.HasRole(authorRoles...) {
		return nil, apperror.Forbidden("only professors and admins can modify posts")
	}

	post, err := s.posts.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if !caller.CanModify(post.AuthorID) {
		return nil, apperror.Forbidden("you can only modify your own posts")
	}

	return post, nil
}

package service

// AuthService is the business logic behind /api/auth:
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)

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

// msgBadCredentials is used for both "no such email" and "wrong password"
// so the response cannot be used to discover which emails are registered.
const msgBadCredentials = "invalid email or password"

// AuthService handles registration, login and the /me lookup.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by Register and Login: the issued token plus the
// public projection of the user it was issued for.
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account and signs the new user in.
//
// The role is chosen by the client and defaults to aluno. An email that is
// already taken is a validation error.
func (s *AuthService) Register(ctx context.Context, in NewUserInput) (*AuthResult, error) {
	user, err := createUser(ctx, s.users, s.passwords, in)
	if err != nil {
		if isUnexpected(err) {
			s.logger.Error("failed to register user", slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// Login checks the credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(msgBadCredentials)
		}
		s.logger.Error("failed to look up user for login", slog.String("error", err.Error()))
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthenticated(msgBadCredentials)
		}
		s.logger.Error("stored password hash is unusable",
			slog.String("id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("id", user.ID))
	return s.issue(user)
}

// Me returns the current record of the authenticated user. A token whose
// user has since been deleted yields apperror.ErrNotFound.
func (s *AuthService) Me(ctx context.Context, caller auth.Principal) (*model.PublicUser, error) {
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	public := user.Public()
	return &public, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{
		Token: token,
		User:  user.Public(),
	}, nil
}

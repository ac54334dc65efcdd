package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/edublog/internal/apperror"
	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/model"
	"github.com/sakif/edublog/internal/service"
)

// AuthService is the slice of service.AuthService the handler needs.
type AuthService interface {
	Register(ctx context.Context, in service.NewUserInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Me(ctx context.Context, caller auth.Principal) (*model.PublicUser, error)
}

// AuthHandler serves /api/auth.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account and sign it in
//   - HandleLogin    → exchange email + password for a token
//   - HandleMe       → return the caller's public profile
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name":"Maria","email":"maria@example.com","password":"...","role":"professor","discipline":"Português"}
// RESPONSE: 201 {"token":"...","user":{...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.NewUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// HandleLogin checks credentials and issues a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"maria@example.com","password":"..."}
// RESPONSE: 200 {"token":"...","user":{...}}, or 401 with the same message
// whether the email or the password was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleMe returns the authenticated user's public profile.
//
// HTTP: GET /api/auth/me (behind auth.RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, h.logger, errNoPrincipal)
		return
	}

	user, err := h.service.Me(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// errNoPrincipal is returned when a protected handler is reached without a
// principal, i.e. the route was mounted outside auth.RequireAuth.
var errNoPrincipal = apperror.Unauthenticated("authentication token required")

func callerFrom(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/model"
	"github.com/sakif/edublog/internal/service"
)

// UserService is the slice of service.UserService the handler needs.
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, in service.NewUserInput) (*model.User, error)
	Update(ctx context.Context, id string, patch service.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, caller auth.Principal, id string, in service.ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, caller auth.Principal, id, currentPassword, newPassword string) error
}

// UserHandler serves /api/users: admin CRUD plus the self-service profile
// and password endpoints.
type UserHandler struct {
	service UserService
	logger  *slog.Logger
}

func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// passwordChange is the body of PUT /api/users/{id}/password.
type passwordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleList returns every user. Admin only.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HTTP: POST /api/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.NewUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HTTP: PUT /api/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HTTP: DELETE /api/users/{id}
// RESPONSE: 200 {"message":"user deleted"}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}

// HandleUpdateProfile is the self-service update. Any authenticated user
// may call it, but only on their own id.
//
// HTTP: PUT /api/users/{id}/profile
// REQUEST BODY: {"name":"...","email":"...","discipline":"...","currentPassword":"...","newPassword":"..."}
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, h.logger, errNoPrincipal)
		return
	}

	var in service.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), caller, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// HTTP: PUT /api/users/{id}/password
// RESPONSE: 200 {"message":"password updated"}
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, h.logger, errNoPrincipal)
		return
	}

	var in passwordChange
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	err := h.service.ChangePassword(r.Context(), caller, chi.URLParam(r, "id"), in.CurrentPassword, in.NewPassword)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}

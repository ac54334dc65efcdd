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

// PostService is the slice of service.PostService the handler needs.
type PostService interface {
	List(ctx context.Context) ([]model.Post, error)
	Search(ctx context.Context, q string) ([]model.Post, error)
	GetByID(ctx context.Context, id string) (*model.Post, error)
	Create(ctx context.Context, caller auth.Principal, in service.PostInput) (*model.Post, error)
	Update(ctx context.Context, caller auth.Principal, id string, patch service.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, caller auth.Principal, id string) error
}

// PostHandler serves /api/posts.
//
// Reads are public. Writes are mounted behind auth.RequireAuth and the
// professor/admin role gate; the ownership gate lives in the service
// because it needs the stored post.
type PostHandler struct {
	service PostService
	logger  *slog.Logger
}

func NewPostHandler(svc PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{service: svc, logger: logger}
}

// HandleList returns every post, newest first.
//
// HTTP: GET /api/posts
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleSearch filters posts by a case-insensitive substring of title or
// content.
//
// HTTP: GET /api/posts/search?q=<term>
func (h *PostHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleGetByID returns one post.
//
// HTTP: GET /api/posts/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") reads the {id} segment of the matched route, so
// GET /api/posts/abc123 yields "abc123".
func (h *PostHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleCreate stores a post authored by the caller. Any author in the
// body is ignored.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"title":"...","content":"<p>...</p>"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, h.logger, errNoPrincipal)
		return
	}

	var in service.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	post, err := h.service.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate changes a post's title and/or content.
//
// HTTP: PUT /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, h.logger, errNoPrincipal)
		return
	}

	var patch service.PostPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	post, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/posts/{id}
// RESPONSE: 200 {"message":"post deleted"}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, h.logger, errNoPrincipal)
		return
	}

	if err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "post deleted"})
}

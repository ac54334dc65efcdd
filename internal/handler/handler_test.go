package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/edublog/internal/apperror"
	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/handler"
	"github.com/sakif/edublog/internal/model"
	"github.com/sakif/edublog/internal/service"
)

// =========================================================================
// FAKES
// =========================================================================

// fakePostService records what the handler passed in and returns canned
// results.
type fakePostService struct {
	gotCaller auth.Principal
	gotID     string
	gotQuery  string
	gotInput  service.PostInput
	gotPatch  service.PostPatch

	post  *model.Post
	posts []model.Post
	err   error
}

func (f *fakePostService) List(context.Context) ([]model.Post, error) {
	return f.posts, f.err
}

func (f *fakePostService) Search(_ context.Context, q string) ([]model.Post, error) {
	f.gotQuery = q
	return f.posts, f.err
}

func (f *fakePostService) GetByID(_ context.Context, id string) (*model.Post, error) {
	f.gotID = id
	return f.post, f.err
}

func (f *fakePostService) Create(_ context.Context, caller auth.Principal, in service.PostInput) (*model.Post, error) {
	f.gotCaller, f.gotInput = caller, in
	return f.post, f.err
}

func (f *fakePostService) Update(_ context.Context, caller auth.Principal, id string, patch service.PostPatch) (*model.Post, error) {
	f.gotCaller, f.gotID, f.gotPatch = caller, id, patch
	return f.post, f.err
}

func (f *fakePostService) Delete(_ context.Context, caller auth.Principal, id string) error {
	f.gotCaller, f.gotID = caller, id
	return f.err
}

type fakeUserService struct {
	gotCaller  auth.Principal
	gotID      string
	gotProfile service.ProfileUpdate
	gotCurrent string
	gotNew     string

	user *model.User
	err  error
}

func (f *fakeUserService) List(context.Context) ([]model.User, error) {
	if f.user == nil {
		return []model.User{}, f.err
	}
	return []model.User{*f.user}, f.err
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*model.User, error) {
	f.gotID = id
	return f.user, f.err
}

func (f *fakeUserService) Create(context.Context, service.NewUserInput) (*model.User, error) {
	return f.user, f.err
}

func (f *fakeUserService) Update(_ context.Context, id string, _ service.UserPatch) (*model.User, error) {
	f.gotID = id
	return f.user, f.err
}

func (f *fakeUserService) Delete(_ context.Context, id string) error {
	f.gotID = id
	return f.err
}

func (f *fakeUserService) UpdateProfile(_ context.Context, caller auth.Principal, id string, in service.ProfileUpdate) (*model.User, error) {
	f.gotCaller, f.gotID, f.gotProfile = caller, id, in
	return f.user, f.err
}

func (f *fakeUserService) ChangePassword(_ context.Context, caller auth.Principal, id, current, next string) error {
	f.gotCaller, f.gotID, f.gotCurrent, f.gotNew = caller, id, current, next
	return f.err
}

type fakeAuthService struct {
	result *service.AuthResult
	me     *model.PublicUser
	err    error
}

func (f *fakeAuthService) Register(context.Context, service.NewUserInput) (*service.AuthResult, error) {
	return f.result, f.err
}

func (f *fakeAuthService) Login(context.Context, service.LoginInput) (*service.AuthResult, error) {
	return f.result, f.err
}

func (f *fakeAuthService) Me(context.Context, auth.Principal) (*model.PublicUser, error) {
	return f.me, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var professor = auth.Principal{ID: "prof-1", Role: model.RoleProfessor}

// serve routes req through a chi router so URL params resolve. When caller
// is non-nil it is attached to the context the way auth.RequireAuth does.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request, caller *auth.Principal) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	if caller != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *caller))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body["message"]
}

// =========================================================================
// POST HANDLER
// =========================================================================

func TestPostHandler_Create(t *testing.T) {
	t.Run("passes caller and body, answers 201", func(t *testing.T) {
		svc := &fakePostService{post: &model.Post{
			ID:     "p1",
			Title:  "Frações",
			Author: &model.PostAuthor{ID: "prof-1", Name: "Prof", Email: "prof@example.com"},
		}}
		h := handler.NewPostHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/posts",
			strings.NewReader(`{"title":"Frações","content":"<p>1/2</p>","author":"someone-else"}`))
		rr := serve(http.MethodPost, "/api/posts", h.HandleCreate, req, &professor)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, professor, svc.gotCaller)
		assert.Equal(t, service.PostInput{Title: "Frações", Content: "<p>1/2</p>"}, svc.gotInput)

		var got map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "p1", got["id"])
		assert.NotContains(t, got, "authorId")
		assert.Equal(t, "prof@example.com", got["author"].(map[string]any)["email"])
	})

	t.Run("no principal is 401", func(t *testing.T) {
		h := handler.NewPostHandler(&fakePostService{}, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{}`))
		rr := serve(http.MethodPost, "/api/posts", h.HandleCreate, req, nil)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		svc := &fakePostService{}
		h := handler.NewPostHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"title":`))
		rr := serve(http.MethodPost, "/api/posts", h.HandleCreate, req, &professor)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, svc.gotCaller.ID, "service must not be called")
	})
}

func TestPostHandler_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", apperror.ValidationFailed("title", "title must be at most 100 characters"), http.StatusBadRequest},
		{"forbidden", apperror.Forbidden("you can only modify your own posts"), http.StatusForbidden},
		{"not found", apperror.NotFound("post", "x"), http.StatusNotFound},
		{"database failure", errors.New("disk I/O error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePostService{err: tt.err}
			h := handler.NewPostHandler(svc, testLogger())

			req := httptest.NewRequest(http.MethodPut, "/api/posts/p9", strings.NewReader(`{"title":"x"}`))
			rr := serve(http.MethodPut, "/api/posts/{id}", h.HandleUpdate, req, &professor)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "p9", svc.gotID)
			assert.NotEmpty(t, decodeMessage(t, rr))
		})
	}
}

func TestPostHandler_Delete(t *testing.T) {
	svc := &fakePostService{}
	h := handler.NewPostHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/p1", nil)
	rr := serve(http.MethodDelete, "/api/posts/{id}", h.HandleDelete, req, &professor)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "post deleted", decodeMessage(t, rr))
	assert.Equal(t, "p1", svc.gotID)
}

func TestPostHandler_SearchPassesQuery(t *testing.T) {
	svc := &fakePostService{posts: []model.Post{}}
	h := handler.NewPostHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/posts/search?q=Matem%C3%A1tica", nil)
	rr := serve(http.MethodGet, "/api/posts/search", h.HandleSearch, req, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Matemática", svc.gotQuery)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

// =========================================================================
// USER HANDLER
// =========================================================================

func TestUserHandler_UpdateProfileReturnsPublicProjection(t *testing.T) {
	svc := &fakeUserService{user: &model.User{
		ID:           "prof-1",
		Name:         "Prof",
		Email:        "prof@example.com",
		PasswordHash: "$2a$04$secret",
		Role:         model.RoleProfessor,
		Discipline:   "Física",
	}}
	h := handler.NewUserHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/users/prof-1/profile",
		strings.NewReader(`{"discipline":"Física","currentPassword":"old","newPassword":"new"}`))
	rr := serve(http.MethodPut, "/api/users/{id}/profile", h.HandleUpdateProfile, req, &professor)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "prof-1", svc.gotID)
	assert.Equal(t, "old", svc.gotProfile.CurrentPassword)
	assert.Equal(t, "new", svc.gotProfile.NewPassword)
	assert.NotContains(t, rr.Body.String(), "secret")
	assert.NotContains(t, rr.Body.String(), "createdAt")
}

func TestUserHandler_ChangePassword(t *testing.T) {
	svc := &fakeUserService{}
	h := handler.NewUserHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/users/prof-1/password",
		strings.NewReader(`{"currentPassword":"old","newPassword":"new"}`))
	rr := serve(http.MethodPut, "/api/users/{id}/password", h.HandleChangePassword, req, &professor)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "password updated", decodeMessage(t, rr))
	assert.Equal(t, professor, svc.gotCaller)
	assert.Equal(t, "old", svc.gotCurrent)
	assert.Equal(t, "new", svc.gotNew)
}

func TestUserHandler_WrongCurrentPasswordIs401(t *testing.T) {
	svc := &fakeUserService{err: apperror.Unauthenticated("current password is incorrect")}
	h := handler.NewUserHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/users/prof-1/password",
		strings.NewReader(`{"currentPassword":"bad","newPassword":"new"}`))
	rr := serve(http.MethodPut, "/api/users/{id}/password", h.HandleChangePassword, req, &professor)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "current password is incorrect", decodeMessage(t, rr))
}

func TestUserHandler_ListHidesPasswordHash(t *testing.T) {
	svc := &fakeUserService{user: &model.User{ID: "u1", Name: "A", Email: "a@example.com", PasswordHash: "$2a$04$hash", Role: model.RoleAdmin}}
	h := handler.NewUserHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rr := serve(http.MethodGet, "/api/users", h.HandleList, req, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hash")
	assert.Contains(t, rr.Body.String(), `"createdAt"`)
}

func TestUserHandler_DeleteNotFound(t *testing.T) {
	svc := &fakeUserService{err: apperror.NotFound("user", "ghost")}
	h := handler.NewUserHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/users/ghost", nil)
	rr := serve(http.MethodDelete, "/api/users/{id}", h.HandleDelete, req, nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "user not found with id ghost", decodeMessage(t, rr))
}

// =========================================================================
// AUTH HANDLER
// =========================================================================

func TestAuthHandler_Register(t *testing.T) {
	svc := &fakeAuthService{result: &service.AuthResult{
		Token: "tok",
		User:  model.PublicUser{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: model.RoleStudent},
	}}
	h := handler.NewAuthHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ana","email":"ana@example.com","password":"123456"}`))
	rr := serve(http.MethodPost, "/api/auth/register", h.HandleRegister, req, nil)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t,
		`{"token":"tok","user":{"id":"u1","name":"Ana","email":"ana@example.com","role":"aluno"}}`,
		rr.Body.String())
}

func TestAuthHandler_LoginFailure(t *testing.T) {
	svc := &fakeAuthService{err: apperror.Unauthenticated("invalid email or password")}
	h := handler.NewAuthHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"x@example.com","password":"nope"}`))
	rr := serve(http.MethodPost, "/api/auth/login", h.HandleLogin, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid email or password", decodeMessage(t, rr))
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("returns profile", func(t *testing.T) {
		svc := &fakeAuthService{me: &model.PublicUser{ID: "prof-1", Name: "Prof", Role: model.RoleProfessor, Discipline: "Física"}}
		h := handler.NewAuthHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		rr := serve(http.MethodGet, "/api/auth/me", h.HandleMe, req, &professor)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"discipline":"Física"`)
	})

	t.Run("deleted user is 404", func(t *testing.T) {
		svc := &fakeAuthService{err: apperror.NotFound("user", "prof-1")}
		h := handler.NewAuthHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		rr := serve(http.MethodGet, "/api/auth/me", h.HandleMe, req, &professor)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

// =========================================================================
// HEALTH
// =========================================================================

func TestHealthHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.HealthHandler(fakePinger{}, testLogger())(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.HealthHandler(fakePinger{err: errors.New("closed")}, testLogger())(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

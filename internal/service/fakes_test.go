package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/edublog/internal/apperror"
	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/model"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// They store copies so a test cannot mutate "stored" state by accident,
// and each has an error hook to simulate a database failure.

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
	err    error // returned by every method when set
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.ValidationFailed("email", "email already in use")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		result = append(result, *u)
	}
	return result, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

type fakePostRepo struct {
	posts  []*model.Post // insertion order; List reverses it
	users  *fakeUserRepo // for populating Author on reads
	nextID int
	err    error
}

func newFakePostRepo(users *fakeUserRepo) *fakePostRepo {
	return &fakePostRepo{users: users}
}

func (f *fakePostRepo) populate(p model.Post) model.Post {
	p.Author = nil
	if u, ok := f.users.users[p.AuthorID]; ok {
		p.Author = &model.PostAuthor{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return p
}

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	stored := *post
	f.posts = append(f.posts, &stored)
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.posts {
		if p.ID == id {
			result := f.populate(*p)
			return &result, nil
		}
	}
	return nil, apperror.NotFound("post", id)
}

func (f *fakePostRepo) List(_ context.Context) ([]model.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make([]model.Post, 0, len(f.posts))
	for _, p := range slices.Backward(f.posts) {
		result = append(result, f.populate(*p))
	}
	return result, nil
}

func (f *fakePostRepo) Search(ctx context.Context, term string) ([]model.Post, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	result := make([]model.Post, 0)
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Content), needle) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePostRepo) Update(_ context.Context, post *model.Post) error {
	if f.err != nil {
		return f.err
	}
	for _, p := range f.posts {
		if p.ID == post.ID {
			p.Title = post.Title
			p.Content = post.Content
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("post", post.ID)
}

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	for i, p := range f.posts {
		if p.ID == id {
			f.posts = slices.Delete(f.posts, i, i+1)
			return nil
		}
	}
	return apperror.NotFound("post", id)
}

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPasswords uses bcrypt's minimum cost to keep tests fast.
func testPasswords() *auth.PasswordService {
	return auth.NewPasswordService(4)
}

// seedUser stores a user with a real bcrypt hash of password and returns
// it along with a principal for it.
func seedUser(repo *fakeUserRepo, name, email, password string, role model.Role) (*model.User, auth.Principal) {
	hash, err := testPasswords().Hash(password)
	if err != nil {
		panic(err)
	}
	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if role == model.RoleProfessor {
		u.Discipline = "Matemática"
	}
	if err := repo.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u, auth.Principal{ID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T {
	return &v
}

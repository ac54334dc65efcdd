package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/edublog/internal/apperror"
	"github.com/sakif/edublog/internal/model"
	"github.com/sakif/edublog/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB implements repository.PostRepository on the posts table.
type PostDB struct {
	conn *sql.DB
}

// selectPosts is the shared read query: every post joined with its author.
//
// LEFT JOIN (not INNER JOIN) so that posts whose author was deleted still
// come back, with NULL author columns.
func selectPosts() sq.SelectBuilder {
	return sq.Select(
		"p.id", "p.title", "p.content", "p.author_id", "p.created_at", "p.updated_at",
		"u.id", "u.name", "u.email",
	).
		From("posts p").
		LeftJoin("users u ON u.id = p.author_id")
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		p           model.Post
		authorID    sql.NullString
		authorName  sql.NullString
		authorEmail sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.AuthorID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&authorID,
		&authorName,
		&authorEmail,
	)
	if err != nil {
		return nil, err
	}

	if authorID.Valid {
		p.Author = &model.PostAuthor{
			ID:    authorID.String,
			Name:  authorName.String,
			Email: authorEmail.String,
		}
	}

	return &p, nil
}

// Create inserts a new post, assigning its ID and timestamps. The caller
// sets AuthorID; Author is left as the caller provided it.
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Content,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetByID returns the post with its author populated, or apperror.NotFound.
func (p *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	query, args, err := selectPosts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building post query: %w", err)
	}

	post, err := scanPost(p.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	return post, nil
}

// List returns every post, newest first.
func (p *PostDB) List(ctx context.Context) ([]model.Post, error) {
	return p.query(ctx, selectPosts().OrderBy("p.created_at DESC", "p.id DESC"))
}

// Search returns posts whose title or content contains term, newest first.
//
// WHY FILTER IN GO INSTEAD OF SQL LIKE?
// SQLite's LIKE and lower() only fold ASCII letters, so "MATEMÁTICA" would
// never match "matemática". strings.ToLower is Unicode-aware, and matching
// with strings.Contains also means the term is taken literally: "%", "_"
// and regex metacharacters have no special meaning.
func (p *PostDB) Search(ctx context.Context, term string) ([]model.Post, error) {
	all, err := p.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(term)
	matches := make([]model.Post, 0)
	for _, post := range all {
		if strings.Contains(strings.ToLower(post.Title), needle) ||
			strings.Contains(strings.ToLower(post.Content), needle) {
			matches = append(matches, post)
		}
	}

	return matches, nil
}

func (p *PostDB) query(ctx context.Context, builder sq.SelectBuilder) ([]model.Post, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building post list query: %w", err)
	}

	rows, err := p.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}

	return posts, nil
}

// Update saves a post's title and content. author_id is not in the SET
// clause, so the author cannot change after creation.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Content,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// Delete removes a post by ID.
func (p *PostDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

package model

import "time"

// Post is a blog entry written by a professor or an admin.
//
// AuthorID is what gets stored; Author is filled in on reads by joining the
// users table. When the author has since been deleted, Author stays nil and
// serializes as null.
type Post struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	AuthorID  string      `json:"-"`
	Author    *PostAuthor `json:"author"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// PostAuthor is the slice of a User embedded in post responses.
type PostAuthor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

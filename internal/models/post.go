package models

import "time"

// Post represents a blog post.
type Post struct {
	ID            string
	Title         string
	Slug          string
	Category      string
	Content       string // sanitized HTML
	CoverImageURL *string
	Published     bool
	AuthorID      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PostStats holds the public counters shown on blog cards.
type PostStats struct {
	Reactions int
	Comments  int
}

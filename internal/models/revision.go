package models

import "time"

// Revision is a prior version of a post's content, written on every update.
type Revision struct {
	ID        int
	PostID    string
	Title     string
	Content   string
	AuthorID  *string
	CreatedAt time.Time
}

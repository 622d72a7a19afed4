package models

import "time"

// Comment is a visitor comment on a post. New comments start pending.
type Comment struct {
	ID        string
	PostID    string
	Name      string
	Email     *string
	Content   string
	Status    string
	CreatedAt time.Time

	// PostTitle is filled by admin listings.
	PostTitle string
}

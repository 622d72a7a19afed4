package models

import "time"

// Reaction is an anonymous visitor's reaction to a post.
type Reaction struct {
	ID             int
	PostID         string
	UserIdentifier string
	ReactionType   string
	CreatedAt      time.Time
}

package models

import "time"

// User is an account row owned by the embedded auth backend.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
}

// RoleAssertion grants a named role to a user.
type RoleAssertion struct {
	UserID string
	Role   string
}

// AuthToken is a single-use token mailed for confirmation or recovery.
type AuthToken struct {
	Token      string
	UserID     string
	Purpose    string
	RedirectTo string
	ExpiresAt  time.Time
}

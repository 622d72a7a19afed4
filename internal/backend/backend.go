// Package backend defines the contracts of the backend collaborator: the
// auth service, role lookups and object storage. The site only talks to the
// backend through these interfaces.
package backend

import (
	"context"
	"errors"
	"io"
	"time"
)

// RoleAdmin is the role literal that grants access to the admin area.
const RoleAdmin = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserExists         = errors.New("user already registered")
	ErrWeakPassword       = errors.New("password is too short")
	ErrNoSession          = errors.New("no active session")
	ErrInvalidToken       = errors.New("token is invalid or has expired")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflicts with an existing row")
)

// User is an identity issued by the auth backend.
type User struct {
	ID    string
	Email string
}

// Session is a credential bundle proving a signed-in user.
type Session struct {
	AccessToken string
	User        User
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthEvent is the kind of a pushed auth state change.
type AuthEvent string

const (
	EventSignedIn         AuthEvent = "SIGNED_IN"
	EventSignedOut        AuthEvent = "SIGNED_OUT"
	EventPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
	EventTokenRefreshed   AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated      AuthEvent = "USER_UPDATED"
)

// AuthListener receives auth events. Listeners are invoked while the client
// holds its internal lock and must not call back into the client.
type AuthListener func(event AuthEvent, session *Session)

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

// AuthClient is one browser's handle on the auth backend. It owns the
// current session and pushes events to its listeners.
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, redirectTo string) error
	SignOut(ctx context.Context) error
	UpdatePassword(ctx context.Context, password string) error
	GetSession(ctx context.Context) (*Session, error)
	// VerifyRecovery also returns where the recovery link asked to land.
	VerifyRecovery(ctx context.Context, token string) (*Session, string, error)
	OnAuthStateChange(listener AuthListener) Subscription
	// CurrentSession returns the cached session without contacting the
	// backend.
	CurrentSession() *Session
}

// RoleChecker answers point lookups of role assertions.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// Storage stores objects in named buckets.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error
	PublicURL(bucket, path string) string
}

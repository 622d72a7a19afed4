package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sephira/internal/backend"
	"sephira/internal/database"
	"sephira/internal/models"
)

// Repository provides access to the authentication storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new authentication repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// FindUserByEmail finds a user by their email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "SELECT id, email, password_hash, confirmed_at, created_at FROM users WHERE email = ?", email)
}

// FindUserByID finds a user by their id.
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "SELECT id, email, password_hash, confirmed_at, created_at FROM users WHERE id = ?", id)
}

func (r *Repository) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.ConfirmedAt, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, confirmed_at, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.ConfirmedAt, user.CreatedAt)
	if database.IsUniqueViolation(err) {
		return backend.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// SetPassword replaces a user's password hash.
func (r *Repository) SetPassword(ctx context.Context, userID, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
	return err
}

// Confirm marks a user's email as confirmed.
func (r *Repository) Confirm(ctx context.Context, userID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET confirmed_at = COALESCE(confirmed_at, ?) WHERE id = ?", at, userID)
	return err
}

// CreateSession stores a new access token.
func (r *Repository) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, "INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)", token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

// FindSession returns the user id and expiry bound to token.
func (r *Repository) FindSession(ctx context.Context, token string) (string, time.Time, error) {
	var userID string
	var expiresAt time.Time
	err := r.DB.QueryRowContext(ctx, "SELECT user_id, expires_at FROM auth_sessions WHERE token = ?", token).Scan(&userID, &expiresAt)
	return userID, expiresAt, err
}

// ExtendSession moves a session's expiry.
func (r *Repository) ExtendSession(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE auth_sessions SET expires_at = ? WHERE token = ?", expiresAt, token)
	return err
}

// DeleteSession removes an access token.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM auth_sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions removes every session past its expiry.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateToken stores a single-use token.
func (r *Repository) CreateToken(ctx context.Context, t *models.AuthToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (token, user_id, purpose, redirect_to, expires_at) VALUES (?, ?, ?, ?, ?)",
		t.Token, t.UserID, t.Purpose, t.RedirectTo, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

// ConsumeToken deletes and returns the token with the given purpose.
func (r *Repository) ConsumeToken(ctx context.Context, token, purpose string) (*models.AuthToken, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	t := models.AuthToken{Token: token}
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, purpose, redirect_to, expires_at FROM auth_tokens WHERE token = ? AND purpose = ?",
		token, purpose).Scan(&t.UserID, &t.Purpose, &t.RedirectTo, &t.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM auth_tokens WHERE token = ?", token); err != nil {
		return nil, fmt.Errorf("error consuming token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}
	return &t, nil
}

// HasRole reports whether the user holds role.
func (r *Repository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var found string
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM user_roles WHERE user_id = ? AND role = ?", userID, role).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GrantRole adds a role assertion. Granting twice is a no-op.
func (r *Repository) GrantRole(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx, "INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)", userID, role)
	return err
}

// RevokeRole removes a role assertion.
func (r *Repository) RevokeRole(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = ? AND role = ?", userID, role)
	return err
}

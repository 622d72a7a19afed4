// Package feedback stores contact-form messages.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sephira/internal/backend"
	"sephira/internal/models"
)

// Statuses.
const (
	StatusNew      = "new"
	StatusReviewed = "reviewed"
)

// Input is a contact-form submission.
type Input struct {
	Name    string
	Email   string
	Message string
}

// Normalize trims surrounding whitespace from every field.
func (in Input) Normalize() Input {
	return Input{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: strings.TrimSpace(in.Message),
	}
}

// Validate checks a normalized input.
func (in Input) Validate() error {
	switch {
	case in.Name == "":
		return &models.ValidationError{Field: "name", Message: "Nome é obrigatório"}
	case utf8.RuneCountInString(in.Name) > 100:
		return &models.ValidationError{Field: "name", Message: "Nome muito longo"}
	case in.Email == "":
		return &models.ValidationError{Field: "email", Message: "Email é obrigatório"}
	case !validEmail(in.Email):
		return &models.ValidationError{Field: "email", Message: "Email inválido"}
	case in.Message == "":
		return &models.ValidationError{Field: "message", Message: "Mensagem é obrigatória"}
	case utf8.RuneCountInString(in.Message) > 5000:
		return &models.ValidationError{Field: "message", Message: "Mensagem muito longa"}
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Repository provides access to the feedback storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new feedback repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create stores a new message.
func (r *Repository) Create(ctx context.Context, in Input) (*models.Feedback, error) {
	f := &models.Feedback{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		Status:    StatusNew,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx, "INSERT INTO feedback (id, name, email, message, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		f.ID, f.Name, f.Email, f.Message, f.Status, f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating feedback: %w", err)
	}
	return f, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]models.Feedback, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.Status, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// List lists messages with the given status, newest first. An empty status
// lists all of them.
func (r *Repository) List(ctx context.Context, status string) ([]models.Feedback, error) {
	const cols = "SELECT id, name, email, message, status, created_at FROM feedback"
	if status == "" {
		return r.query(ctx, cols+" ORDER BY created_at DESC")
	}
	return r.query(ctx, cols+" WHERE status = ? ORDER BY created_at DESC", status)
}

// Recent returns the newest limit messages.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.Feedback, error) {
	return r.query(ctx, "SELECT id, name, email, message, status, created_at FROM feedback ORDER BY created_at DESC LIMIT ?", limit)
}

// Find finds a message by id.
func (r *Repository) Find(ctx context.Context, id string) (models.Feedback, error) {
	var f models.Feedback
	err := r.DB.QueryRowContext(ctx, "SELECT id, name, email, message, status, created_at FROM feedback WHERE id = ?", id).
		Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.Status, &f.CreatedAt)
	return f, err
}

// MarkReviewed marks a message as reviewed. Reviewing twice is harmless.
func (r *Repository) MarkReviewed(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE feedback SET status = ? WHERE id = ?", StatusReviewed, id)
	if err != nil {
		return fmt.Errorf("error updating feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// Delete deletes a message.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of messages per status.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{StatusNew: 0, StatusReviewed: 0}
	rows, err := r.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM feedback GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

package comment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sephira/internal/backend"
	"sephira/internal/models"
)

// Repository provides access to the comment storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create stores a pending comment on postID.
func (r *Repository) Create(ctx context.Context, postID string, in Input) (*models.Comment, error) {
	c := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Name:      in.Name,
		Content:   in.Content,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if in.Email != "" {
		email := in.Email
		c.Email = &email
	}
	_, err := r.DB.ExecContext(ctx, "INSERT INTO comments (id, post_id, name, email, content, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.PostID, c.Name, c.Email, c.Content, c.Status, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating comment: %w", err)
	}
	return c, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]models.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Name, &c.Email, &c.Content, &c.Status, &c.CreatedAt, &c.PostTitle); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListApprovedByPost lists the approved comments of a post, oldest first.
func (r *Repository) ListApprovedByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	return r.list(ctx, `
SELECT c.id, c.post_id, c.name, c.email, c.content, c.status, c.created_at, p.title
FROM comments c JOIN posts p ON p.id = c.post_id
WHERE c.post_id = ? AND c.status = 'approved'
ORDER BY c.created_at ASC`, postID)
}

// ListWithPosts lists comments with the given status, newest first, with
// the title of their post. An empty status lists all of them.
func (r *Repository) ListWithPosts(ctx context.Context, status string) ([]models.Comment, error) {
	base := `
SELECT c.id, c.post_id, c.name, c.email, c.content, c.status, c.created_at, p.title
FROM comments c JOIN posts p ON p.id = c.post_id`
	if status == "" {
		return r.list(ctx, base+" ORDER BY c.created_at DESC")
	}
	return r.list(ctx, base+" WHERE c.status = ? ORDER BY c.created_at DESC", status)
}

// SetStatus moves a comment to another moderation status.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid comment status %q", status)
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE comments SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("error updating comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// Delete deletes a comment.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of comments per status. Every status is
// present in the result.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, s := range Statuses {
		counts[s] = 0
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM comments GROUP BY status")
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

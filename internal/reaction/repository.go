package reaction

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Repository stores reactions in the likes table.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new reaction repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// ListByPost returns every reaction on a post.
func (r *Repository) ListByPost(ctx context.Context, postID string) ([]Row, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT user_identifier, reaction_type FROM likes WHERE post_id = ?", postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.VisitorID, &row.Type); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Insert records a reaction.
func (r *Repository) Insert(ctx context.Context, postID, visitorID string, t Type) error {
	_, err := r.DB.ExecContext(ctx, "INSERT INTO likes (post_id, user_identifier, reaction_type) VALUES (?, ?, ?)", postID, visitorID, string(t))
	if err != nil {
		return fmt.Errorf("error creating reaction: %w", err)
	}
	return nil
}

// DeleteByVisitor removes the visitor's reaction on a post.
func (r *Repository) DeleteByVisitor(ctx context.Context, postID, visitorID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM likes WHERE post_id = ? AND user_identifier = ?", postID, visitorID)
	if err != nil {
		return fmt.Errorf("error deleting reaction: %w", err)
	}
	return nil
}

// CountByPosts returns the number of reactions per post for the given ids.
// Posts without reactions are absent from the map.
func (r *Repository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	query := "SELECT post_id, COUNT(*) FROM likes WHERE post_id IN (?" + strings.Repeat(", ?", len(postIDs)-1) + ") GROUP BY post_id"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Count returns the number of reactions on all posts.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM likes").Scan(&n)
	return n, err
}

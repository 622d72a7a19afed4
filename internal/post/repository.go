package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sephira/internal/backend"
	"sephira/internal/database"
	"sephira/internal/models"
)

const postColumns = "id, title, slug, category, content, cover_image_url, published, author_id, created_at, updated_at"

// Repository provides access to the post storage.
type Repository struct {
	DB  *sql.DB
	now func() time.Time
}

// NewRepository creates a new post repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (models.Post, error) {
	var p models.Post
	err := s.Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.Content, &p.CoverImageURL, &p.Published, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPublished lists published posts, newest first. An empty category
// lists all of them.
func (r *Repository) ListPublished(ctx context.Context, category string) ([]models.Post, error) {
	if category == "" {
		return r.list(ctx, "SELECT "+postColumns+" FROM posts WHERE published = 1 ORDER BY created_at DESC")
	}
	return r.list(ctx, "SELECT "+postColumns+" FROM posts WHERE published = 1 AND category = ? ORDER BY created_at DESC", category)
}

// FindPublishedBySlug finds a published post by its slug.
func (r *Repository) FindPublishedBySlug(ctx context.Context, slug string) (models.Post, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE slug = ? AND published = 1", slug)
	return scanPost(row)
}

// List lists every post, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Post, error) {
	return r.list(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC")
}

// Find finds a post by id.
func (r *Repository) Find(ctx context.Context, id string) (models.Post, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	return scanPost(row)
}

// Create inserts a post. A slug already in use yields backend.ErrConflict.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.now()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO posts (id, title, slug, category, content, cover_image_url, published, author_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Title, p.Slug, p.Category, p.Content, p.CoverImageURL, p.Published, p.AuthorID, p.CreatedAt, p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return backend.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}
	return nil
}

// Update saves p and keeps the previous title and content as a revision
// authored by authorID.
func (r *Repository) Update(ctx context.Context, p *models.Post, authorID *string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var prevTitle, prevContent string
	err = tx.QueryRowContext(ctx, "SELECT title, content FROM posts WHERE id = ?", p.ID).Scan(&prevTitle, &prevContent)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error loading post: %w", err)
	}

	now := r.now()
	if prevTitle != p.Title || prevContent != p.Content {
		_, err = tx.ExecContext(ctx, "INSERT INTO post_revisions (post_id, title, content, author_id, created_at) VALUES (?, ?, ?, ?, ?)", p.ID, prevTitle, prevContent, authorID, now)
		if err != nil {
			return fmt.Errorf("error creating revision: %w", err)
		}
	}

	p.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		"UPDATE posts SET title = ?, slug = ?, category = ?, content = ?, cover_image_url = ?, published = ?, updated_at = ? WHERE id = ?",
		p.Title, p.Slug, p.Category, p.Content, p.CoverImageURL, p.Published, p.UpdatedAt, p.ID)
	if database.IsUniqueViolation(err) {
		return backend.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// SetPublished publishes or unpublishes a post.
func (r *Repository) SetPublished(ctx context.Context, id string, published bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE posts SET published = ?, updated_at = ? WHERE id = ?", published, r.now(), id)
	if err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}
	return expectRow(res)
}

// Delete deletes a post with its comments, reactions and revisions.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// Count returns the number of posts.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n)
	return n, err
}

// ListRevisions lists the revisions of a post, newest first.
func (r *Repository) ListRevisions(ctx context.Context, postID string) ([]models.Revision, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, post_id, title, content, author_id, created_at FROM post_revisions WHERE post_id = ? ORDER BY id DESC", postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []models.Revision
	for rows.Next() {
		var rev models.Revision
		if err := rows.Scan(&rev.ID, &rev.PostID, &rev.Title, &rev.Content, &rev.AuthorID, &rev.CreatedAt); err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

// GetRevision gets one revision of a post.
func (r *Repository) GetRevision(ctx context.Context, postID string, id int) (models.Revision, error) {
	var rev models.Revision
	err := r.DB.QueryRowContext(ctx, "SELECT id, post_id, title, content, author_id, created_at FROM post_revisions WHERE post_id = ? AND id = ?", postID, id).
		Scan(&rev.ID, &rev.PostID, &rev.Title, &rev.Content, &rev.AuthorID, &rev.CreatedAt)
	return rev, err
}

// Stats returns reaction and approved comment counts for the given posts.
// Every requested id is present in the result.
func (r *Repository) Stats(ctx context.Context, postIDs []string) (map[string]models.PostStats, error) {
	stats := make(map[string]models.PostStats, len(postIDs))
	if len(postIDs) == 0 {
		return stats, nil
	}
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
		stats[id] = models.PostStats{}
	}
	in := "(?" + strings.Repeat(", ?", len(postIDs)-1) + ")"

	query := `
SELECT p.id,
       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id),
       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND c.status = 'approved')
FROM posts p WHERE p.id IN ` + in
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error loading post stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var s models.PostStats
		if err := rows.Scan(&id, &s.Reactions, &s.Comments); err != nil {
			return nil, err
		}
		stats[id] = s
	}
	return stats, rows.Err()
}

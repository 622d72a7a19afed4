package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sephira/internal/models"
)

// Repository provides access to the attachment records.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new attachment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create inserts a new attachment record into the database.
func (r *Repository) Create(ctx context.Context, a *models.Attachment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO attachments (bucket, path, filename, mime_type, size, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.Bucket, a.Path, a.Filename, a.MimeType, a.Size, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating attachment: %w", err)
	}
	id, _ := res.LastInsertId()
	a.ID = int(id)
	return nil
}

// List lists the attachments of a bucket, newest first.
func (r *Repository) List(ctx context.Context, bucket string) ([]models.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, bucket, path, filename, mime_type, size, created_at FROM attachments WHERE bucket = ? ORDER BY id DESC", bucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.Bucket, &a.Path, &a.Filename, &a.MimeType, &a.Size, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

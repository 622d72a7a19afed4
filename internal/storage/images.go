package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"sephira/internal/backend"
	"sephira/internal/models"
)

// Image upload errors.
var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
)

// Image kinds, used as the object path prefix.
const (
	KindCover   = "covers"
	KindContent = "content"
)

var imageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Images uploads post images to a bucket and records them.
type Images struct {
	Store    backend.Storage
	Repo     *Repository
	Bucket   string
	MaxBytes int64
}

// Upload stores the image read from r under a fresh name and returns its
// public URL. Only JPEG, PNG and WebP images up to MaxBytes are accepted;
// the type is sniffed from the content, not taken from the client.
func (i *Images) Upload(ctx context.Context, kind, filename string, r io.Reader) (string, error) {
	if kind != KindCover && kind != KindContent {
		kind = KindContent
	}
	data, err := io.ReadAll(io.LimitReader(r, i.MaxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > i.MaxBytes {
		return "", ErrTooLarge
	}
	mimeType := http.DetectContentType(data)
	ext, ok := imageTypes[mimeType]
	if !ok {
		return "", ErrUnsupportedType
	}

	p := kind + "/" + uuid.NewString() + "." + ext
	if err := i.Store.Upload(ctx, i.Bucket, p, bytes.NewReader(data), mimeType); err != nil {
		return "", err
	}
	err = i.Repo.Create(ctx, &models.Attachment{
		Bucket:   i.Bucket,
		Path:     p,
		Filename: filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
	})
	if err != nil {
		return "", err
	}
	return i.Store.PublicURL(i.Bucket, p), nil
}

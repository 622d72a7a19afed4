// Package storage keeps uploaded objects on disk, in buckets, and records
// them in the attachments table.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for object paths that escape their bucket.
var ErrInvalidPath = errors.New("invalid object path")

// Disk is an object store rooted at a directory. Objects live at
// <Root>/<bucket>/<path> and are served under /uploads/.
type Disk struct {
	Root string
}

// NewDisk creates a disk store rooted at root.
func NewDisk(root string) *Disk {
	return &Disk{Root: root}
}

func cleanObjectPath(bucket, p string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, `\`) {
		return "", ErrInvalidPath
	}
	return path.Join(bucket, clean), nil
}

// Upload writes the object, replacing any object at the same path.
func (d *Disk) Upload(ctx context.Context, bucket, p string, r io.Reader, contentType string) error {
	rel, err := cleanObjectPath(bucket, p)
	if err != nil {
		return err
	}
	dst := filepath.Join(d.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("error creating bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("error saving the file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing the file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing the file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// PublicURL returns the URL the object is served at.
func (d *Disk) PublicURL(bucket, p string) string {
	rel, err := cleanObjectPath(bucket, p)
	if err != nil {
		return ""
	}
	u := url.URL{Path: "/uploads/" + rel}
	return u.EscapedPath()
}

// Handler serves the stored objects. Mount it under /uploads/.
func (d *Disk) Handler() http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(noListing{http.Dir(d.Root)}))
}

// noListing hides directory listings.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

package storage_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/database"
	"sephira/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDisk(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	root := t.TempDir()
	disk := storage.NewDisk(root)

	err := disk.Upload(ctx, "blog-images", "covers/a.png", bytes.NewReader(pngHeader), "image/png")
	c.Assert(err, qt.IsNil)
	got, err := os.ReadFile(filepath.Join(root, "blog-images", "covers", "a.png"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, pngHeader)
	c.Assert(disk.PublicURL("blog-images", "covers/a.png"), qt.Equals, "/uploads/blog-images/covers/a.png")

	c.Run("paths stay inside the bucket", func(c *qt.C) {
		err := disk.Upload(ctx, "blog-images", "../../etc/passwd", strings.NewReader("x"), "text/plain")
		c.Assert(err, qt.IsNil)
		_, err = os.Stat(filepath.Join(root, "blog-images", "etc", "passwd"))
		c.Assert(err, qt.IsNil)

		c.Assert(disk.Upload(ctx, "..", "a.png", strings.NewReader("x"), ""), qt.ErrorIs, storage.ErrInvalidPath)
		c.Assert(disk.Upload(ctx, "blog-images", "", strings.NewReader("x"), ""), qt.ErrorIs, storage.ErrInvalidPath)
	})

	c.Run("serves objects but not listings", func(c *qt.C) {
		srv := httptest.NewServer(disk.Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/uploads/blog-images/covers/a.png")
		c.Assert(err, qt.IsNil)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(body, qt.DeepEquals, pngHeader)

		resp, err = http.Get(srv.URL + "/uploads/blog-images/covers/")
		c.Assert(err, qt.IsNil)
		resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	})
}

func TestImages(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	c.Assert(err, qt.IsNil)
	defer db.Close()
	c.Assert(database.Migrate(db), qt.IsNil)

	repo := storage.NewRepository(db)
	images := &storage.Images{
		Store:    storage.NewDisk(t.TempDir()),
		Repo:     repo,
		Bucket:   "blog-images",
		MaxBytes: 64,
	}

	url, err := images.Upload(ctx, storage.KindCover, "lua.png", bytes.NewReader(pngHeader))
	c.Assert(err, qt.IsNil)
	c.Assert(url, qt.Matches, `/uploads/blog-images/covers/[0-9a-f-]{36}\.png`)

	list, err := repo.List(ctx, "blog-images")
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 1)
	c.Assert(list[0].Filename, qt.Equals, "lua.png")
	c.Assert(list[0].MimeType, qt.Equals, "image/png")
	c.Assert(list[0].Size, qt.Equals, int64(len(pngHeader)))

	_, err = images.Upload(ctx, storage.KindContent, "notes.txt", strings.NewReader("just text"))
	c.Assert(err, qt.ErrorIs, storage.ErrUnsupportedType)

	big := append(append([]byte{}, pngHeader...), make([]byte, 100)...)
	_, err = images.Upload(ctx, storage.KindContent, "big.png", bytes.NewReader(big))
	c.Assert(err, qt.ErrorIs, storage.ErrTooLarge)
}

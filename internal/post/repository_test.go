package post_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/backend"
	"sephira/internal/database"
	"sephira/internal/models"
	"sephira/internal/post"
)

func openTestDB(c *qt.C) *sql.DB {
	db, err := database.New(filepath.Join(c.TempDir(), "test.db"))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { db.Close() })
	c.Assert(database.Migrate(db), qt.IsNil)
	return db
}

func newPost(slug, category string, published bool) *models.Post {
	return &models.Post{Title: "Post " + slug, Slug: slug, Category: category, Content: "<p>" + slug + "</p>", Published: published}
}

func TestRepository(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	db := openTestDB(c)
	repo := post.NewRepository(db)

	tarot := newPost("tarot-1", "tarot", true)
	draft := newPost("draft", "tarot", false)
	astro := newPost("astro-1", "astrology", true)
	for _, p := range []*models.Post{tarot, draft, astro} {
		c.Assert(repo.Create(ctx, p), qt.IsNil)
		c.Assert(p.ID, qt.Not(qt.Equals), "")
	}

	c.Run("duplicate slug", func(c *qt.C) {
		err := repo.Create(ctx, newPost("tarot-1", "tarot", false))
		c.Assert(err, qt.ErrorIs, backend.ErrConflict)
	})

	c.Run("published listing", func(c *qt.C) {
		all, err := repo.ListPublished(ctx, "")
		c.Assert(err, qt.IsNil)
		c.Assert(all, qt.HasLen, 2)

		only, err := repo.ListPublished(ctx, "tarot")
		c.Assert(err, qt.IsNil)
		c.Assert(only, qt.HasLen, 1)
		c.Assert(only[0].Slug, qt.Equals, "tarot-1")

		_, err = repo.FindPublishedBySlug(ctx, "draft")
		c.Assert(err, qt.ErrorIs, sql.ErrNoRows)
	})

	c.Run("publish toggle", func(c *qt.C) {
		c.Assert(repo.SetPublished(ctx, draft.ID, true), qt.IsNil)
		p, err := repo.FindPublishedBySlug(ctx, "draft")
		c.Assert(err, qt.IsNil)
		c.Assert(p.Published, qt.IsTrue)
		c.Assert(repo.SetPublished(ctx, "missing", true), qt.ErrorIs, backend.ErrNotFound)
	})

	c.Run("update keeps a revision", func(c *qt.C) {
		p, err := repo.Find(ctx, tarot.ID)
		c.Assert(err, qt.IsNil)
		p.Content = "<p>rewritten</p>"
		author := "u-admin"
		c.Assert(repo.Update(ctx, &p, &author), qt.IsNil)

		revs, err := repo.ListRevisions(ctx, tarot.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(revs, qt.HasLen, 1)
		c.Assert(revs[0].Content, qt.Equals, "<p>tarot-1</p>")
		c.Assert(*revs[0].AuthorID, qt.Equals, "u-admin")

		rev, err := repo.GetRevision(ctx, tarot.ID, revs[0].ID)
		c.Assert(err, qt.IsNil)
		c.Assert(rev.Title, qt.Equals, "Post tarot-1")

		// Saving unchanged content adds no revision.
		c.Assert(repo.Update(ctx, &p, &author), qt.IsNil)
		revs, err = repo.ListRevisions(ctx, tarot.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(revs, qt.HasLen, 1)

		p.Slug = "astro-1"
		c.Assert(repo.Update(ctx, &p, &author), qt.ErrorIs, backend.ErrConflict)
	})

	c.Run("stats", func(c *qt.C) {
		_, err := db.Exec(`INSERT INTO likes (post_id, user_identifier, reaction_type) VALUES (?, 'v1', 'heart'), (?, 'v2', 'leaf')`, tarot.ID, tarot.ID)
		c.Assert(err, qt.IsNil)
		_, err = db.Exec(`INSERT INTO comments (id, post_id, name, content, status) VALUES ('c1', ?, 'n', 'x', 'approved'), ('c2', ?, 'n', 'x', 'pending')`, tarot.ID, tarot.ID)
		c.Assert(err, qt.IsNil)

		stats, err := repo.Stats(ctx, []string{tarot.ID, astro.ID})
		c.Assert(err, qt.IsNil)
		c.Assert(stats, qt.DeepEquals, map[string]models.PostStats{
			tarot.ID: {Reactions: 2, Comments: 1},
			astro.ID: {},
		})
	})

	c.Run("delete", func(c *qt.C) {
		c.Assert(repo.Delete(ctx, astro.ID), qt.IsNil)
		c.Assert(repo.Delete(ctx, astro.ID), qt.ErrorIs, backend.ErrNotFound)
		n, err := repo.Count(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 2)
	})
}

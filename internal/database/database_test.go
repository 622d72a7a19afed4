package database_test

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/database"
)

func TestMigrate_IsIdempotent(t *testing.T) {
	c := qt.New(t)
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	c.Assert(err, qt.IsNil)
	defer db.Close()

	c.Assert(database.Migrate(db), qt.IsNil)
	c.Assert(database.Migrate(db), qt.IsNil)

	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM site_settings").Scan(&n)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 7)
}

func TestMigrate_EnforcesConstraints(t *testing.T) {
	c := qt.New(t)
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	c.Assert(err, qt.IsNil)
	defer db.Close()
	c.Assert(database.Migrate(db), qt.IsNil)

	c.Run("reaction type outside the enum is rejected", func(c *qt.C) {
		_, err := db.Exec(`INSERT INTO posts (id, title, slug, category, content) VALUES ('p1', 'T', 't', 'tarot', 'x')`)
		c.Assert(err, qt.IsNil)
		_, err = db.Exec(`INSERT INTO likes (post_id, user_identifier, reaction_type) VALUES ('p1', 'v1', 'star')`)
		c.Assert(err, qt.IsNotNil)
	})

	c.Run("foreign keys are enforced", func(c *qt.C) {
		_, err := db.Exec(`INSERT INTO comments (id, post_id, name, content) VALUES ('c1', 'missing', 'n', 'x')`)
		c.Assert(err, qt.IsNotNil)
	})
}

package reaction_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/reaction"
)

func TestVisitors(t *testing.T) {
	c := qt.New(t)
	visitors := reaction.NewVisitors([]byte("0123456789abcdef0123456789abcdef"), false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/blog/x/reactions", nil)
	_, ok := visitors.Peek(req)
	c.Assert(ok, qt.IsFalse)

	id, err := visitors.ID(rec, req)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Not(qt.Equals), "")
	cookies := rec.Result().Cookies()
	c.Assert(cookies, qt.HasLen, 1)

	c.Run("returning visitor keeps the id", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodPost, "/blog/x/reactions", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		again, err := visitors.ID(rec, req)
		c.Assert(err, qt.IsNil)
		c.Assert(again, qt.Equals, id)
		c.Assert(rec.Result().Cookies(), qt.HasLen, 0)
	})

	c.Run("tampered cookie gets a new id", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodPost, "/blog/x/reactions", nil)
		req.AddCookie(&http.Cookie{Name: "visitor_id", Value: "forged"})
		rec := httptest.NewRecorder()
		other, err := visitors.ID(rec, req)
		c.Assert(err, qt.IsNil)
		c.Assert(other, qt.Not(qt.Equals), id)
		c.Assert(rec.Result().Cookies(), qt.HasLen, 1)
	})
}

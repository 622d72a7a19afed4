package post_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/models"
	"sephira/internal/post"
)

func TestSlugify(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		title string
		want  string
	}{
		{"Lua Cheia em Escorpião", "lua-cheia-em-escorpiao"},
		{"  O Louco & A Jornada!  ", "o-louco-a-jornada"},
		{"Numerologia -- 2025", "numerologia-2025"},
		{"Ação, Reflexão e Cura", "acao-reflexao-e-cura"},
		{"", ""},
	}
	for _, test := range tests {
		c.Run(test.title, func(c *qt.C) {
			c.Assert(post.Slugify(test.title), qt.Equals, test.want)
		})
	}
}

func TestInput_Validate(t *testing.T) {
	c := qt.New(t)
	valid := post.Input{Title: "Tarot", Slug: "tarot-1", Category: "tarot", Content: "<p>x</p>"}
	c.Assert(valid.Validate(), qt.IsNil)

	tests := []struct {
		name  string
		edit  func(*post.Input)
		field string
	}{
		{"empty title", func(in *post.Input) { in.Title = "  " }, "title"},
		{"long title", func(in *post.Input) { in.Title = strings.Repeat("a", 201) }, "title"},
		{"empty slug", func(in *post.Input) { in.Slug = "" }, "slug"},
		{"uppercase slug", func(in *post.Input) { in.Slug = "Tarot" }, "slug"},
		{"slug with spaces", func(in *post.Input) { in.Slug = "a b" }, "slug"},
		{"unknown category", func(in *post.Input) { in.Category = "crystals" }, "category"},
		{"empty content", func(in *post.Input) { in.Content = "" }, "content"},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			in := valid
			test.edit(&in)
			err := in.Validate()
			var verr *models.ValidationError
			c.Assert(err, qt.ErrorAs, &verr)
			c.Assert(verr.Field, qt.Equals, test.field)
		})
	}
}

func TestSanitize(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps formatting", `<h2>Title</h2><p><strong>bold</strong> <em>it</em></p>`, `<h2>Title</h2><p><strong>bold</strong> <em>it</em></p>`},
		{"drops scripts", `<p>hi</p><script>alert(1)</script>`, `<p>hi</p>`},
		{"drops handlers", `<img src="/uploads/a.png" alt="a" onerror="x()">`, `<img src="/uploads/a.png" alt="a">`},
		{"drops javascript links", `<a href="javascript:alert(1)">x</a>`, `x`},
		{"keeps links", `<a href="https://example.com" target="_blank">x</a>`, `<a href="https://example.com" target="_blank">x</a>`},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			c.Assert(post.Sanitize(test.in), qt.Equals, test.want)
		})
	}
}

func TestRenderOrg(t *testing.T) {
	c := qt.New(t)
	out, err := post.RenderOrg("* Os Arcanos\n\nO *Louco* abre a jornada.\n\n#+begin_src go\nfmt.Println(1)\n#+end_src\n")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Os Arcanos")
	c.Assert(out, qt.Contains, "<strong>Louco</strong>")
	c.Assert(out, qt.Contains, `class="chroma"`)

	prepared, err := post.Prepare("Texto <script>x</script>", post.FormatOrg)
	c.Assert(err, qt.IsNil)
	c.Assert(prepared, qt.Not(qt.Contains), "<script>")
}

func TestDiff(t *testing.T) {
	c := qt.New(t)
	got := string(post.Diff("a <b> c", "a <i> c"))
	c.Assert(got, qt.Contains, "<del>")
	c.Assert(got, qt.Contains, "<ins>")
	c.Assert(got, qt.Not(qt.Contains), "<b>")
	c.Assert(got, qt.Contains, "&lt;")
}

func TestExcerpt(t *testing.T) {
	c := qt.New(t)
	c.Assert(post.Excerpt("<p>Lua &amp; Sol</p><p>em Peixes</p>", 100), qt.Equals, "Lua & Sol em Peixes")
	c.Assert(post.Excerpt("<p>abcdefgh</p>", 4), qt.Equals, "abcd…")
	c.Assert(post.Excerpt("", 10), qt.Equals, "")
}

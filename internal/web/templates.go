package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"time"

	"sephira/internal/post"
)

//go:embed templates
var templateFiles embed.FS

var funcs = template.FuncMap{
	"categoryLabel": post.CategoryLabel,
	"excerpt":       post.Excerpt,
	"date": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("02/01/2006 15:04")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// LoadTemplates parses one isolated template set per page. Every set holds
// the page, the layout of its area and the shared partials, and is executed
// through "layout.html".
func LoadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	for _, area := range []string{"public", "admin", "auth"} {
		pages, err := fs.Glob(templateFiles, path.Join("templates", area, "*.html"))
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			name := path.Base(page)
			if name == "layout.html" {
				continue
			}
			if _, dup := templates[name]; dup {
				return nil, fmt.Errorf("template %s defined twice", name)
			}
			t, err := template.New(name).Funcs(funcs).ParseFS(templateFiles,
				path.Join("templates", area, "layout.html"),
				"templates/partials/*.html",
				page,
			)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", page, err)
			}
			templates[name] = t
		}
	}
	return templates, nil
}

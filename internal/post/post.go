// Package post holds blog posts: validation, slugs, sanitizing and
// rendering of their content, and their storage with revision history.
package post

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"sephira/internal/models"
)

// Categories in menu order.
var Categories = []Category{
	{Slug: "astrology", Label: "Astrologia"},
	{Slug: "tarot", Label: "Tarot"},
	{Slug: "numerology", Label: "Numerologia"},
	{Slug: "rituals", Label: "Rituais"},
	{Slug: "healing", Label: "Cura"},
	{Slug: "monthly", Label: "Mensal"},
}

// Category is a blog category.
type Category struct {
	Slug  string
	Label string
}

// CategoryLabel returns the label of slug, or slug itself when unknown.
func CategoryLabel(slug string) string {
	for _, c := range Categories {
		if c.Slug == slug {
			return c.Label
		}
	}
	return slug
}

// ValidCategory reports whether slug names a category.
func ValidCategory(slug string) bool {
	for _, c := range Categories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Input is the editable part of a post.
type Input struct {
	Title         string
	Slug          string
	Category      string
	Content       string
	CoverImageURL string
	Published     bool
}

// Validate checks the input before anything is written.
func (in Input) Validate() error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return &models.ValidationError{Field: "title", Message: "Título é obrigatório"}
	case utf8.RuneCountInString(title) > 200:
		return &models.ValidationError{Field: "title", Message: "Título muito longo"}
	case in.Slug == "":
		return &models.ValidationError{Field: "slug", Message: "Slug é obrigatório"}
	case len(in.Slug) > 200:
		return &models.ValidationError{Field: "slug", Message: "Slug muito longo"}
	case !slugPattern.MatchString(in.Slug):
		return &models.ValidationError{Field: "slug", Message: "Slug deve conter apenas letras minúsculas, números e hífens"}
	case !ValidCategory(in.Category):
		return &models.ValidationError{Field: "category", Message: "Categoria inválida"}
	case strings.TrimSpace(in.Content) == "":
		return &models.ValidationError{Field: "content", Message: "Conteúdo é obrigatório"}
	}
	return nil
}

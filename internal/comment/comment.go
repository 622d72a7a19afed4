// Package comment stores visitor comments on posts and their moderation
// status.
package comment

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"sephira/internal/models"
)

// Moderation statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusSpam     = "spam"
)

// Statuses lists the moderation tabs in order.
var Statuses = []string{StatusPending, StatusApproved, StatusSpam}

// ValidStatus reports whether s is a moderation status.
func ValidStatus(s string) bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Input is a comment submitted from a post page.
type Input struct {
	Name    string
	Email   string
	Content string
}

// Normalize trims surrounding whitespace from every field.
func (in Input) Normalize() Input {
	return Input{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Content: strings.TrimSpace(in.Content),
	}
}

// Validate checks a normalized input.
func (in Input) Validate() error {
	switch {
	case in.Name == "":
		return &models.ValidationError{Field: "name", Message: "Nome é obrigatório"}
	case utf8.RuneCountInString(in.Name) > 100:
		return &models.ValidationError{Field: "name", Message: "Nome muito longo"}
	case in.Email != "" && !validEmail(in.Email):
		return &models.ValidationError{Field: "email", Message: "Email inválido"}
	case in.Content == "":
		return &models.ValidationError{Field: "content", Message: "Comentário é obrigatório"}
	case utf8.RuneCountInString(in.Content) > 2000:
		return &models.ValidationError{Field: "content", Message: "Comentário muito longo"}
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Package settings reads and writes the editable key/value site settings.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Keys.
const (
	ContactEmail     = "contact_email"
	ContactWhatsApp  = "contact_whatsapp"
	ContactInstagram = "contact_instagram"
	AboutSubtitle    = "about_subtitle"
	AboutMainText    = "about_main_text"
	AboutHowIWork    = "about_how_i_work"
	AboutApproach    = "about_approach"
)

// Keys lists every known setting.
var Keys = []string{
	ContactEmail, ContactWhatsApp, ContactInstagram,
	AboutSubtitle, AboutMainText, AboutHowIWork, AboutApproach,
}

// Settings maps keys to values. Missing keys read as empty.
type Settings map[string]string

// Defaults returns every known key with an empty value.
func Defaults() Settings {
	s := make(Settings, len(Keys))
	for _, k := range Keys {
		s[k] = ""
	}
	return s
}

var nonDigits = regexp.MustCompile(`\D`)

// WhatsAppURL links to a chat with the configured number, or "#".
func (s Settings) WhatsAppURL() string {
	n := s[ContactWhatsApp]
	if n == "" {
		return "#"
	}
	return "https://wa.me/" + nonDigits.ReplaceAllString(n, "")
}

// InstagramURL links to the configured profile, or "#".
func (s Settings) InstagramURL() string {
	handle := s[ContactInstagram]
	if handle == "" {
		return "#"
	}
	return "https://instagram.com/" + strings.Replace(handle, "@", "", 1)
}

// EmailURL is a mailto link to the configured address, or "#".
func (s Settings) EmailURL() string {
	email := s[ContactEmail]
	if email == "" {
		return "#"
	}
	return "mailto:" + email
}

// Get returns the value of key.
func (s Settings) Get(key string) string {
	return s[key]
}

// Repository provides access to the settings storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Load reads the stored settings over the defaults.
func (r *Repository) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	rows, err := r.DB.QueryContext(ctx, "SELECT key, value FROM site_settings")
	if err != nil {
		return s, fmt.Errorf("error loading settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return s, err
		}
		s[k] = v
	}
	return s, rows.Err()
}

// Save upserts the given values. Unknown keys are ignored.
func (r *Repository) Save(ctx context.Context, values Settings) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range Keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO site_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", k, strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("error saving setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

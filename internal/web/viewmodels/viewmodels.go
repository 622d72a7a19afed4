package viewmodels

import (
	"html/template"
	"time"

	"sephira/internal/authstate"
	"sephira/internal/models"
	"sephira/internal/oracle"
	"sephira/internal/post"
	"sephira/internal/reaction"
	"sephira/internal/settings"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

// Service is an entry of the services catalogue.
type Service struct {
	Slug        string
	Title       string
	Description string
	Details     []string
}

// PostCard is a blog listing entry with its public counters.
type PostCard struct {
	Post  models.Post
	Stats models.PostStats
}

// RevisionViewModel combines a revision with its author for display.
type RevisionViewModel struct {
	ID        int
	Title     string
	CreatedAt time.Time
	Author    string
}

// ReactionButton is one reaction toggle on a post page.
type ReactionButton struct {
	Type   reaction.Type
	Emoji  string
	Label  string
	Count  int
	Active bool
}

// DashboardStats are the counters of the admin dashboard.
type DashboardStats struct {
	TotalPosts      int
	PendingComments int
	NewFeedback     int
	TotalReactions  int
}

// Tab is a status filter tab of an admin listing.
type Tab struct {
	Status string
	Label  string
	Count  int
	Active bool
}

// PageData is a unified struct to hold all possible data for any page.
type PageData struct {
	Title    string
	Path     string
	Flashes  []Flash
	Auth     authstate.View
	Settings settings.Settings

	// Public pages.
	Services   []Service
	Service    Service
	Categories []post.Category
	Category   string
	Posts      []PostCard
	Post       models.Post
	Content    template.HTML
	Comments   []models.Comment
	Reactions  []ReactionButton
	Total      int

	// Oracle.
	MeditationSeconds int
	RevealDelayMillis int64
	Card              *oracle.Card

	// Forms. Values echoes submitted input after a failed validation.
	Values map[string]string
	Errors map[string]string
	Mode   string

	// Admin pages.
	Stats          DashboardStats
	AdminPosts     []models.Post
	Revisions      []RevisionViewModel
	From, To       int
	Tabs           []Tab
	Status         string
	RecentFeedback []models.Feedback
	Feedback       []models.Feedback
	Message        *models.Feedback
	IsNew          bool
	MaxUploadBytes int64
}

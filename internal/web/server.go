package web

import (
	"context"
	"database/sql"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"

	"sephira/internal/auth"
	"sephira/internal/authstate"
	"sephira/internal/comment"
	"sephira/internal/config"
	"sephira/internal/feedback"
	"sephira/internal/post"
	"sephira/internal/reaction"
	"sephira/internal/settings"
	"sephira/internal/storage"
)

// Server holds the dependencies for the web server.
type Server struct {
	db        *sql.DB
	cfg       *config.Config
	templates map[string]*template.Template

	authService  *auth.Service
	authRepo     *auth.Repository
	registry     *authstate.Registry
	store        sessions.Store
	visitors     *reaction.Visitors
	postRepo     *post.Repository
	commentRepo  *comment.Repository
	feedbackRepo *feedback.Repository
	reactionRepo *reaction.Repository
	settingsRepo *settings.Repository
	reactions    *reaction.Service
	disk         *storage.Disk
	images       *storage.Images

	handler http.Handler
}

// NewServer creates a new server with the given dependencies. A nil mailer
// logs outgoing mail.
func NewServer(db *sql.DB, templates map[string]*template.Template, cfg *config.Config, mailer auth.Mailer) (*Server, error) {
	store, err := auth.NewCookieStore(cfg.SessionKey)
	if err != nil {
		return nil, err
	}
	secure := strings.HasPrefix(cfg.PublicBaseURL, "https://")
	store.Options.Secure = secure

	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, mailer, auth.Options{
		BaseURL:             cfg.PublicBaseURL,
		RequireConfirmation: cfg.Auth.RequireConfirmation,
		SessionTTL:          cfg.Auth.SessionTTL,
		MinPasswordLength:   cfg.Auth.MinPasswordLength,
	})

	signUpRedirect := strings.TrimRight(cfg.PublicBaseURL, "/") + "/admin"
	registry := authstate.NewRegistry(func(accessToken string) *authstate.Manager {
		return authstate.NewManager(authService.NewClient(accessToken), authService, authstate.Options{
			SignUpRedirect: signUpRedirect,
		})
	}, cfg.Auth.BrowserIdleTTL, nil)
	registry.SetLimit(cfg.Auth.MaxBrowsers)

	reactionRepo := reaction.NewRepository(db)
	disk := storage.NewDisk(cfg.UploadsDir)

	s := &Server{
		db:           db,
		cfg:          cfg,
		templates:    templates,
		authService:  authService,
		authRepo:     authRepo,
		registry:     registry,
		store:        store,
		visitors:     reaction.NewVisitors([]byte(cfg.SessionKey), secure),
		postRepo:     post.NewRepository(db),
		commentRepo:  comment.NewRepository(db),
		feedbackRepo: feedback.NewRepository(db),
		reactionRepo: reactionRepo,
		settingsRepo: settings.NewRepository(db),
		reactions:    reaction.NewService(reactionRepo),
		disk:         disk,
		images: &storage.Images{
			Store:    disk,
			Repo:     storage.NewRepository(db),
			Bucket:   cfg.Storage.Bucket,
			MaxBytes: cfg.Storage.MaxUploadBytes,
		},
	}
	s.handler = s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Maintain evicts idle browser auth states and purges expired sessions
// every interval until ctx is done.
func (s *Server) Maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.registry.Sweep()
			s.authService.PurgeExpired(ctx)
		}
	}
}

// Close tears down every browser's auth state.
func (s *Server) Close() {
	s.registry.Close()
}

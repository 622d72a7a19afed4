package web

import (
	"net/http"

	"sephira/internal/web/controller"
	"sephira/internal/web/middleware"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", StaticFileServer()))
	mux.Handle("/uploads/", s.disk.Handler())

	authMiddleware := &middleware.Auth{Store: s.store, Registry: s.registry}

	appMux := http.NewServeMux()

	publicController := controller.Public{SettingsRepo: s.settingsRepo, FeedbackRepo: s.feedbackRepo, Templates: s.templates}
	publicController.Register(appMux)

	oracleController := controller.Oracle{Templates: s.templates}
	oracleController.Register(appMux)

	blogController := controller.Blog{
		PostRepo:    s.postRepo,
		CommentRepo: s.commentRepo,
		Reactions:   s.reactions,
		Visitors:    s.visitors,
		Templates:   s.templates,
	}
	blogController.Register(appMux)

	authMux := http.NewServeMux()
	authController := controller.Auth{
		AuthService:       s.authService,
		Templates:         s.templates,
		BaseURL:           s.cfg.PublicBaseURL,
		GateWait:          s.cfg.Auth.GateWait,
		MinPasswordLength: s.cfg.Auth.MinPasswordLength,
	}
	authController.Register(authMux)

	adminMux := http.NewServeMux()
	adminController := controller.Admin{
		PostRepo:     s.postRepo,
		CommentRepo:  s.commentRepo,
		FeedbackRepo: s.feedbackRepo,
		ReactionRepo: s.reactionRepo,
		SettingsRepo: s.settingsRepo,
		Templates:    s.templates,
	}
	adminController.Register(adminMux)

	postsController := controller.Posts{PostRepo: s.postRepo, AuthRepo: s.authRepo, Images: s.images, Templates: s.templates}
	postsController.Register(adminMux)

	moderationController := controller.Moderation{CommentRepo: s.commentRepo, FeedbackRepo: s.feedbackRepo, Templates: s.templates}
	moderationController.Register(adminMux)

	miscController := controller.Misc{Images: s.images}
	miscController.Register(adminMux)

	gate := middleware.RequireAdmin(s.cfg.Auth.GateWait, controller.Loading(s.templates))
	admin := authMiddleware.WithAuth(gate(adminMux))
	appMux.Handle("/admin", admin)
	appMux.Handle("/admin/", admin)

	authRoutes := authMiddleware.WithAuth(authMux)
	appMux.Handle("/admin/login", authRoutes)
	appMux.Handle("/admin/logout", authRoutes)
	appMux.Handle("/auth/", authRoutes)

	mux.Handle("/", authMiddleware.WithSession(appMux))

	return mux
}

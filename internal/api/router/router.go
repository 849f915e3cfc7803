// Package router assembles the chi HTTP router from handler dependencies.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lmercier/hosting-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/lmercier/hosting-ai-platform/internal/http/middleware"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger               *logging.Logger
	ReplyHandler         *handlers.ReplyHandler
	WhatsAppHandler      *handlers.WhatsAppHandler
	ConversationsHandler *handlers.ConversationsHandler
	MetricsHandler       http.Handler
	AdminJWTSecret       string
	CORSAllowedOrigins   []string
}

// New builds the router with all routes configured. Admin routes live under
// /admin behind the JWT middleware.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ReplyHandler != nil {
			public.Post("/api/replies", cfg.ReplyHandler.Generate)
		}
		if cfg.ConversationsHandler != nil {
			public.Route("/api/conversations/{id}", func(r chi.Router) {
				r.Get("/messages", cfg.ConversationsHandler.Messages)
				r.Post("/refresh", cfg.ConversationsHandler.Refresh)
			})
		}
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
		if cfg.WhatsAppHandler != nil {
			admin.Post("/whatsapp/template", cfg.WhatsAppHandler.SendTemplate)
		}
		if cfg.ConversationsHandler != nil {
			admin.Delete("/conversations/{id}", cfg.ConversationsHandler.Close)
		}
	})

	return r
}

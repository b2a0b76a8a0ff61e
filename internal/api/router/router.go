// Package router assembles the HTTP surface: the conversational chat
// endpoint, the admin projections and maintenance operations, health, and
// metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-concierge/internal/assistant"
	"github.com/wolfman30/clinic-concierge/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-concierge/internal/http/middleware"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Chat               *assistant.ChatHandler
	Admin              *handlers.AdminHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
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

	r.Get("/health", cfg.Admin.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/chat", cfg.Chat.Chat)

	r.Route("/admin", func(admin chi.Router) {
		admin.Get("/patients", cfg.Admin.ListPatients)
		admin.Post("/patients", cfg.Admin.CreatePatient)
		admin.Get("/doctors", cfg.Admin.ListDoctors)
		admin.Get("/appointments", cfg.Admin.ListAppointments)
		admin.Get("/appointments/expired", cfg.Admin.ListAllAppointments)
		admin.Get("/stats", cfg.Admin.GetStats)
		admin.Get("/status", cfg.Admin.GetStatus)
		admin.Post("/cleanup", cfg.Admin.Cleanup)
		admin.Post("/backup", cfg.Admin.Backup)
		admin.Post("/sessions/cleanup", cfg.Admin.CleanupSessions)
	})

	return r
}

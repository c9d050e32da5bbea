package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/relife/service-api/app"
	"github.com/relife/service-api/handlers"
	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/middleware"
	"github.com/relife/service-api/services"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Get("/health", deps.HealthHandler.HandleHealth)
	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", observability.Handler(deps.Registry))
	}

	auth := deps.AuthMiddleware

	// Identity with roles
	r.With(auth.RequireAuthWithRoles).Get("/whoami", deps.IdentityHandler.HandleWhoAmI)

	// Report requests, scoped to the caller through Row Level Security
	r.Route("/report-request", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/", deps.ReportHandler.HandleCreate)
		r.Get("/", deps.ReportHandler.HandleList)
	})

	// Admin routes (require admin role)
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuthWithRoles)
		r.Use(auth.RequireAdmin)
		r.Get("/users", deps.AdminHandler.HandleListUsers)
	})

	// File storage, scoped to the caller's folder
	r.Route("/storage", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/", deps.StorageHandler.HandleUpload)
		r.Get("/", deps.StorageHandler.HandleList)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleServiceError(w, services.ErrEndpointNotFound, deps.Logger)
	})

	return r
}

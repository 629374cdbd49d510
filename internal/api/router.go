package api

import (
	"time"

	"github.com/Project-Sylos/Canopy/internal/api/handlers"
	apimiddleware "github.com/Project-Sylos/Canopy/internal/api/middleware"
	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Router represents the HTTP API router
type Router struct {
	store  *pagestore.Store
	logger zerolog.Logger
}

// NewRouter creates a new API router
func NewRouter(store *pagestore.Store, logger zerolog.Logger) *Router {
	return &Router{store: store, logger: logger}
}

// SetupRoutes configures all API routes using modular handlers
func (r *Router) SetupRoutes() *chi.Mux {
	router := chi.NewRouter()

	// Standard middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.RequestLogger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Custom middleware
	router.Use(apimiddleware.CORS)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	pageHandler := handlers.NewPageHandler(r.store)
	sidebarHandler := handlers.NewSidebarHandler(r.store)
	systemHandler := handlers.NewSystemHandler(r.store)

	// Health check
	router.Get("/health", healthHandler.HealthCheck)

	// API routes
	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/pages", func(pages chi.Router) {
			pages.Post("/", pageHandler.CreatePage)
			pages.Get("/recent", pageHandler.GetRecentChanges)
			pages.Get("/{id}", pageHandler.GetPage)
			pages.Put("/{id}", pageHandler.UpdatePage)
			pages.Delete("/{id}", pageHandler.DeletePage)
			pages.Post("/{id}/move", pageHandler.MovePage)
			pages.Get("/{id}/breadcrumbs", pageHandler.GetBreadcrumbs)
		})

		api.Route("/spaces", func(spaces chi.Router) {
			spaces.Get("/", systemHandler.GetSpaces)
			spaces.Get("/{spaceID}/sidebar", sidebarHandler.ListPages)
			spaces.Get("/{spaceID}/count", systemHandler.GetSpaceCount)
		})

		// System operations
		api.Post("/reset", systemHandler.Reset)
		api.Post("/seed", systemHandler.Seed)
		api.Get("/config", systemHandler.GetConfig)
	})

	return router
}

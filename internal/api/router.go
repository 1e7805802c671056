package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.requestMetrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// The site list page calls the API from the backend's origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/health", s.handleHealthCheck)
	r.Get("/sites", s.handleSitesPage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/page/reload", s.handleReload)

		r.Get("/sites", s.handleListTracked)
		r.Route("/sites/{siteID}", func(r chi.Router) {
			r.Get("/", s.handleSiteState)
			r.Post("/track", s.handleTrack)
			r.Delete("/track", s.handleUntrack)
			r.Post("/commands", s.handleCommand)
		})

		r.Get("/outcomes", s.handleOutcomes)
		r.Get("/notifications", s.handleNotifications)

		r.Get("/theme", s.handleGetTheme)
		r.Put("/theme", s.handleSetTheme)
		r.Post("/theme/toggle", s.handleToggleTheme)
	})

	return r
}

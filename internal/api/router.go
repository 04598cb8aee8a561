package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/savegress/melawatch/internal/insights"
	"github.com/savegress/melawatch/internal/reports"
	"github.com/savegress/melawatch/internal/simulation"
)

// Server represents the API server
type Server struct {
	router   chi.Router
	store    *simulation.Store
	insights *insights.Service
	reports  *reports.Registry
}

// NewServer creates a new API server
func NewServer(store *simulation.Store, insightsService *insights.Service, reportRegistry *reports.Registry) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		store:    store,
		insights: insightsService,
		reports:  reportRegistry,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	s.router.Get("/health", s.healthCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Devices
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.listDevices)
			r.Get("/{id}", s.getDevice)
			r.Put("/{id}", s.updateDevice)
			r.Post("/{id}/rfid", s.assignRFID)
			r.Delete("/{id}/rfid", s.clearRFID)
		})

		// Simulation
		r.Post("/simulation/refresh", s.forceRefresh)
		r.Get("/stats", s.getStats)

		// Insights
		r.Get("/insights", s.listInsights)
		r.Get("/assignments", s.listAssignments)
		r.Post("/recommendations", s.generateRecommendation)

		// Citizen reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.listReports)
			r.Post("/", s.submitReport)
			r.Get("/stats", s.getReportStats)
			r.Get("/{id}", s.getReport)
			r.Post("/{id}/acknowledge", s.acknowledgeReport)
			r.Post("/{id}/resolve", s.resolveReport)
		})
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

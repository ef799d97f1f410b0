package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tibialabs/tibia-houses/internal/cache"
	"github.com/tibialabs/tibia-houses/internal/houses"
	"github.com/tibialabs/tibia-houses/internal/observability"
	"github.com/tibialabs/tibia-houses/internal/store"
	"github.com/tibialabs/tibia-houses/internal/tibia"
)

type Server struct {
	router  *chi.Mux
	client  tibia.PageClient
	results *cache.Cache[*houses.ExtractionResult]
	towns   *cache.Cache[[]string]
	store   *store.Store
	metrics *observability.Metrics
	now     func() time.Time
}

func NewServer(client tibia.PageClient, results *cache.Cache[*houses.ExtractionResult], towns *cache.Cache[[]string], driftStore *store.Store, metrics *observability.Metrics) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		client:  client,
		results: results,
		towns:   towns,
		store:   driftStore,
		metrics: metrics,
		now:     time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.router.Get("/api/v1/towns", s.handleTowns)
	s.router.Get("/api/v1/worlds/{world}/residences", s.handleResidences)
	s.router.Get("/api/v1/drift-events", s.handleDriftEvents)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

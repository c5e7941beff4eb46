// Package api serves the persistence contract over HTTP. Every /api/v1
// route acts as the user named by the bearer token, through a per-user
// session on the shared SQLite store.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arabicbase/arabicbase/internal/auth"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/ratelimit"
	"github.com/arabicbase/arabicbase/internal/store/sqlite"
)

// Options configures a Server.
type Options struct {
	DB      *sqlite.DB
	Tokens  *auth.TokenService
	Broker  *events.Broker
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	CORSOrigins []string
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server is the HTTP API server.
type Server struct {
	db      *sqlite.DB
	tokens  *auth.TokenService
	broker  *events.Broker
	metrics *metrics.Metrics
	limiter *ratelimit.KeyedRateLimiter
	router  *chi.Mux
	api     huma.API
	logger  *slog.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(opts Options) *Server {
	s := &Server{
		db:      opts.DB,
		tokens:  opts.Tokens,
		broker:  opts.Broker,
		metrics: opts.Metrics,
		router:  chi.NewRouter(),
		logger:  logger.Component(opts.Logger, "api"),
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.New(opts.RateLimit, opts.RateBurst, 10*time.Minute)
	}

	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("ArabicBase API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerEntryRoutes()
	s.registerCatalogRoutes()
	s.registerVoteRoutes()
	s.registerProfileRoutes()

	if s.broker != nil {
		s.router.Handle("/api/v1/events", events.NewHandler(s.broker, requestUser, s.logger))
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(authMiddleware(s.tokens))
	if s.limiter != nil {
		s.router.Use(rateLimitMiddleware(s.limiter, s.logger))
	}
}

// Package handler provides the HTTP JSON API for Reelhub.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/metrics"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	authHandler  *AuthHandler
	videoHandler *VideoHandler
	userHandler  *UserHandler
	verifier     auth.Verifier
	health       HealthChecker
	metrics      *metrics.Metrics
	metricsPath  string
	corsOrigins  []string
	logger       zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler  *AuthHandler
	VideoHandler *VideoHandler
	UserHandler  *UserHandler
	Verifier     auth.Verifier

	// Health backs GET /ready. Nil means always ready.
	Health HealthChecker

	// Metrics enables request instrumentation and the metrics endpoint when set.
	Metrics     *metrics.Metrics
	MetricsPath string

	CORSOrigins []string
	Logger      zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	path := config.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	return &Router{
		authHandler:  config.AuthHandler,
		videoHandler: config.VideoHandler,
		userHandler:  config.UserHandler,
		verifier:     config.Verifier,
		health:       config.Health,
		metrics:      config.Metrics,
		metricsPath:  path,
		corsOrigins:  config.CORSOrigins,
		logger:       config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(rt.logger)...)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}
	r.Use(cors(rt.corsOrigins))
	r.Use(auth.Authenticate(rt.verifier))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health checks (no auth)
	r.Get("/health", rt.handleHealth)
	r.Get("/ready", rt.handleReady)
	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", rt.authHandler.Register)
		r.Post("/login", rt.authHandler.Login)
	})

	r.Route("/videos", func(r chi.Router) {
		r.Get("/", rt.videoHandler.List)
		r.Get("/user/{userId}", rt.videoHandler.ListByUser)
		r.Get("/{id}", rt.videoHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/bookmarked", rt.videoHandler.Bookmarked)
			r.Post("/", rt.videoHandler.Create)
			r.Post("/upload-url", rt.videoHandler.UploadURL)
			r.Put("/{id}", rt.videoHandler.Update)
		})
	})

	r.With(auth.RequireAuth).Get("/feed/following", rt.videoHandler.Following)

	r.Route("/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/profile", rt.userHandler.Me)
			r.Put("/profile", rt.userHandler.UpdateMe)
			r.Get("/stats", rt.userHandler.Stats)
			r.Post("/{id}/follow", rt.userHandler.Follow)
		})

		r.Get("/{id}", rt.userHandler.Profile)
		r.Get("/{id}/followers", rt.userHandler.Followers)
		r.Get("/{id}/following", rt.userHandler.Following)
	})

	return r
}

// handleHealth reports liveness.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports whether the store is reachable.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.health.Health(ctx); err != nil {
			rt.logger.Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/irgordon/laraprov/internal/api/handlers"
	auth_middleware "github.com/irgordon/laraprov/internal/api/middleware"
)

// RouterConfig defines the dependencies required to build the dashboard routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	AuthMiddleware *auth_middleware.AuthMiddleware
	ProjectHandler *handlers.ProjectHandler
	RunHandler     *handlers.RunHandler
	PromptHandler  *handlers.PromptHandler
	HealthHandler  *handlers.HealthHandler
	WSHandler      *handlers.WebSocketHandler
	Logger         *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(auth_middleware.MaxBytes(1_048_576))
	r.Use(cfg.AuthMiddleware.RateLimit)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", cfg.HealthHandler.Check)

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireAuthentication)

			// Long-lived; must not sit behind the request timeout.
			r.Get("/ws/runs/{id}", cfg.WSHandler.StreamRunLogs)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))

				r.Route("/projects", func(r chi.Router) {
					r.Get("/", cfg.ProjectHandler.List)
					r.Post("/", cfg.ProjectHandler.Create)
					r.Delete("/{index}", cfg.ProjectHandler.Delete)
				})

				r.Post("/runs", cfg.RunHandler.Start)
				r.Get("/runs/current", cfg.RunHandler.Current)

				r.Get("/prompts/pending", cfg.PromptHandler.Pending)
				r.Post("/prompts/{id}", cfg.PromptHandler.Resolve)
			})
		})
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}

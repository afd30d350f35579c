package http

import (
	"net/http"

	"github.com/auth-actions/internal/config"
	"github.com/auth-actions/internal/transport/http/handler"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 64 << 10

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"authorization", "x-client-info", "apikey", "content-type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler()
	actionsH := handler.NewAuthActionsHandler(deps.Issuer, deps.Verifier)

	r.Get("/health-check/{action}", healthH.Ping)
	r.Options("/auth-actions", actionsH.Preflight)
	r.With(chimiddleware.RequestSize(maxBodyBytes)).Post("/auth-actions", actionsH.Action)

	return r
}

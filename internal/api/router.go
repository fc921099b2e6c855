package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	docrender "github.com/docrender/go-docrender"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Generate       *GenerateHandler
	Metrics        *docrender.Metrics
	Logger         zerolog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the backend HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Observe(cfg.Metrics, cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(origins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", Health)
	r.Post("/pdf/{id}/generate", cfg.Generate.Generate)

	return r
}

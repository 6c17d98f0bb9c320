package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services groups the application services behind the API.
type Services struct {
	Recipients RecipientService
	Occasions  OccasionService
	Composer   Previewer
	Batches    BatchRunner
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	MetricsEnabled bool
	// Auth guards /api/v1. A nil Auth leaves the API open, which only tests do.
	Auth func(http.Handler) http.Handler
}

// NewRouter builds the operator API.
func NewRouter(svcs Services, cfg RouterConfig, logger *slog.Logger) http.Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if cfg.MetricsEnabled {
		r.Use(PrometheusMetricsMiddleware)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "greeting service is healthy"})
	})
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	recipientHandler := NewRecipientHandler(svcs.Recipients, logger, validate)
	occasionHandler := NewOccasionHandler(svcs.Occasions, logger, validate)
	greetingHandler := NewGreetingHandler(svcs.Composer, svcs.Batches, logger, validate)

	r.Route("/api/v1", func(v1 chi.Router) {
		if cfg.Auth != nil {
			v1.Use(cfg.Auth)
		}
		recipientHandler.RegisterRoutes(v1)
		occasionHandler.RegisterRoutes(v1)
		greetingHandler.RegisterRoutes(v1)
	})
	return r
}

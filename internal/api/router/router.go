package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brettulin/okdentalai/internal/http/handlers"
	httpmiddleware "github.com/brettulin/okdentalai/internal/http/middleware"
	"github.com/brettulin/okdentalai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	OfficesHandler *handlers.OfficesHandler
	PMSHandler     *handlers.PMSHandler
	MetricsHandler http.Handler

	CORSAllowedOrigins []string

	// RateLimitPerSecond caps requests per client IP; zero disables the
	// limiter.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitPerSecond)
		}
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, burst))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/offices", func(offices chi.Router) {
			if cfg.OfficesHandler != nil {
				offices.Post("/", cfg.OfficesHandler.Create)
				offices.Get("/", cfg.OfficesHandler.List)
			}
			offices.Route("/{officeID}", func(one chi.Router) {
				if cfg.OfficesHandler != nil {
					one.Get("/", cfg.OfficesHandler.Get)
					one.Put("/pms-type", cfg.OfficesHandler.SetPMSType)
				}
				if cfg.PMSHandler != nil {
					one.Mount("/pms", cfg.PMSHandler.Routes())
				}
			})
		})
	})

	return r
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Checkout           *CheckoutHandler
	PageState          *PageStateHandler
	Metrics            http.Handler
	JWTSecret          string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	// ReadyChecks are run by /health; any failure answers 503.
	ReadyChecks        map[string]func(context.Context) error
	Logger             *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", healthHandler(cfg.ReadyChecks, cfg.Logger))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Use(AuthMiddleware(cfg.JWTSecret, cfg.Logger))

		r.Get("/locations", cfg.Checkout.GetLocations)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Checkout.GetGuestCart)
			r.Put("/", cfg.Checkout.ReplaceGuestCart)
			r.Post("/items", cfg.Checkout.AddGuestCartItems)
			r.Post("/merge", cfg.Checkout.MergeCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/cart", cfg.Checkout.GetCart)
			r.Put("/buy-now", cfg.Checkout.StageBuyNow)
			r.Get("/form", cfg.Checkout.GetForm)
			r.Put("/form", cfg.Checkout.UpdateForm)
			r.Post("/validate", cfg.Checkout.Validate)
			r.Post("/intent", cfg.Checkout.StartPayment)

			r.Route("/confirmation", func(r chi.Router) {
				r.Post("/mount", cfg.Checkout.Mount)
				r.Post("/card", cfg.Checkout.SetCardComplete)
				r.Post("/submit", cfg.Checkout.Submit)
			})
		})

		if cfg.PageState != nil {
			r.Route("/pagestate", func(r chi.Router) {
				r.Get("/*", cfg.PageState.Get)
				r.Put("/*", cfg.PageState.Put)
				r.Delete("/*", cfg.PageState.Delete)
			})
		}
	})

	return otelhttp.NewHandler(r, "storefront-checkout")
}

const readyCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status  string   `json:"status"`
	Failing []string `json:"failing,omitempty"`
}

func healthHandler(checks map[string]func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		var failing []string
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				failing = append(failing, name)
			}
		}
		if len(failing) > 0 {
			sort.Strings(failing)
			respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Failing: failing})
			return
		}
		respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// Package httpapi exposes screening and administration over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haukened/rr-callguard/internal/callguard/common/log"
)

const (
	defaultScreenTimeout = 200 * time.Millisecond
	defaultRecentLimit   = 50
	defaultRetentionDays = 30
)

// Options configures NewRouter. Screener is required; a nil admin dependency
// leaves its routes unmounted.
type Options struct {
	Screener CallScreener
	Rules    RuleManager
	History  History
	Settings SettingsManager
	Logger   log.Logger

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// Health reports readiness for /healthz; nil always reports ok.
	Health func(ctx context.Context) error

	ScreenTimeout  time.Duration
	RetentionDays  int
	AllowedOrigins []string
}

type handlers struct {
	screener      CallScreener
	rules         RuleManager
	history       History
	settings      SettingsManager
	logger        log.Logger
	health        func(ctx context.Context) error
	screenTimeout time.Duration
	retentionDays int
}

// NewRouter builds the API handler.
func NewRouter(opts Options) http.Handler {
	h := &handlers{
		screener:      opts.Screener,
		rules:         opts.Rules,
		history:       opts.History,
		settings:      opts.Settings,
		logger:        opts.Logger,
		health:        opts.Health,
		screenTimeout: opts.ScreenTimeout,
		retentionDays: opts.RetentionDays,
	}
	if h.logger == nil {
		h.logger = log.NewNoopLogger()
	}
	if h.screenTimeout <= 0 {
		h.screenTimeout = defaultScreenTimeout
	}
	if h.retentionDays <= 0 {
		h.retentionDays = defaultRetentionDays
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.healthz)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/screen", h.screen)

		if h.rules != nil {
			r.Route("/rules", func(r chi.Router) {
				r.Get("/", h.listRules)
				r.Post("/", h.addRule)
				r.Delete("/", h.deleteAllRules)
				r.Post("/defaults", h.loadDefaults)
				r.Get("/export", h.exportRules)
				r.Post("/import", h.importRules)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getRule)
					r.Put("/", h.updateRule)
					r.Delete("/", h.deleteRule)
					r.Post("/toggle", h.toggleRule)
				})
			})
		}

		if h.history != nil {
			r.Route("/calls", func(r chi.Router) {
				r.Get("/", h.listCalls)
				r.Delete("/", h.deleteAllCalls)
				r.Get("/recent", h.recentCalls)
				r.Post("/cleanup", h.cleanupCalls)
				r.Delete("/{id}", h.deleteCall)
			})
			r.Get("/stats", h.stats)
		}

		if h.settings != nil {
			r.Get("/settings", h.getSettings)
			r.Put("/settings", h.putSettings)
		}
	})
	return r
}

// requestLogger logs one line per request at debug level, and at warn for 5xx.
func requestLogger(l log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			fields := map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"took":       time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}
			if ww.Status() >= http.StatusInternalServerError {
				l.Warn(fields, "request served with error")
				return
			}
			l.Debug(fields, "request served")
		})
	}
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn(map[string]any{"error": err}, "health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package api exposes the market over HTTP and websocket.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zappabad/coinsim/internal/admin"
	"github.com/zappabad/coinsim/internal/market/service"
)

// NewRouter creates a chi router with every route registered. metrics may be
// nil, in which case /metrics is not served.
func NewRouter(
	cfg Config,
	svc *service.MarketService,
	gate *admin.Gate,
	metrics http.Handler,
	logger *slog.Logger,
) chi.Router {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(logger))

	h := newHandler(cfg, svc, gate, logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Get("/ws", h.Stream)

	r.Group(func(r chi.Router) {
		r.Use(contentTypeJSON)

		r.Get("/state", h.GetState)
		r.Get("/assets", h.ListAssets)
		r.Get("/assets/{symbol}/history", h.GetHistory)
		r.Post("/assets/{symbol}/buy", h.Buy)
		r.Post("/assets/{symbol}/sell", h.Sell)
		r.Get("/log", h.GetLog)
		r.Post("/reset", h.Reset)
		r.Post("/admin/credit", h.CreditCash)
	})

	return r
}

// requestLogging logs each request's method, path, status code and duration.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// contentTypeJSON rejects POST bodies that are not JSON. Bodyless POSTs are
// allowed.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

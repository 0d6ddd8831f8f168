// Package server wires the HTTP API onto the core engine.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ebogdum/drivefs/auth"
	"github.com/ebogdum/drivefs/config"
	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/links"
	"github.com/ebogdum/drivefs/metrics"
	"github.com/ebogdum/drivefs/server/handlers"
	linksHandlers "github.com/ebogdum/drivefs/server/handlers/links"
	authMiddleware "github.com/ebogdum/drivefs/server/middleware"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	engine *core.Engine,
	authenticator auth.Authenticator,
	linkManager *links.Manager,
	cfg *config.AppConfig,
	logger *zap.Logger,
) chi.Router {
	hc := handlers.NewHandlerConfig(cfg.Server)

	r := chi.NewRouter()

	r.Use(authMiddleware.V1RequestIDMiddleware())
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Server.WriteTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	}
	r.Use(authMiddleware.V1SecurityHeaders())
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.SendJSONResponse(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.V1AuthMiddleware(authenticator, logger))

		r.Route("/files", func(r chi.Router) {
			r.Get("/*", handlers.V1GetFile(engine, hc, logger))
			r.Head("/*", handlers.V1HeadFile(engine, hc, logger))
			r.Put("/*", handlers.V1PutFile(engine, hc, logger))
			r.Post("/*", handlers.V1PostFile(engine, hc, logger))
			r.Delete("/*", handlers.V1DeleteFile(engine, hc, logger))
		})

		r.Post("/folders/*", handlers.V1CreateFolder(engine, hc, logger))
		r.Post("/rename/*", handlers.V1Rename(engine, hc, logger))

		r.Route("/links", func(r chi.Router) {
			linkRateLimiter := rate.NewLimiter(rate.Limit(cfg.Links.RateLimit), cfg.Links.Burst)
			r.With(authMiddleware.V1RateLimitMiddleware(linkRateLimiter, logger)).
				Post("/generate", linksHandlers.V1GenerateLinkHandler(linkManager, hc, logger))
		})
	})

	logger.Info("HTTP router configured", zap.Bool("metrics", cfg.Metrics.Enabled))

	return r
}

// requestLogger records one metric sample and one log line per request.
// Routes are labelled by pattern so file paths never become label values.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", duration),
				zap.String("request_id", authMiddleware.GetRequestID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}

// Package web provides the HTTP API for catalog imports.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/config"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
	mw "github.com/Wilendar/PPM-CC-Laravel-sub027/internal/web/middleware"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server needs.
type Deps struct {
	Catalog core.CatalogSchemaProvider
	Store   core.Store

	// Limiter is built from config when nil.
	Limiter *core.ImportLimiter

	// Pinger is optional; /healthz skips the database check without it.
	Pinger Pinger
}

// Server is the HTTP server for the import API.
type Server struct {
	cfg       *config.Config
	importer  *core.Importer
	templates *core.TemplateGenerator
	limiter   *core.ImportLimiter
	reports   *reportStore
	pinger    Pinger
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	}

	s := &Server{
		cfg:       cfg,
		importer:  core.NewImporter(deps.Catalog, deps.Store),
		templates: core.NewTemplateGenerator(deps.Catalog),
		limiter:   limiter,
		reports:   newReportStore(cfg.Server.ReportRetention),
		pinger:    deps.Pinger,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Route("/import", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Compress(5))
				r.Use(middleware.Timeout(60 * time.Second))

				r.Get("/types", s.handleListTypes)
				r.Get("/reports/{reportID}", s.handleReport)
				r.Get("/{importType}/template", s.handleTemplate)
				r.Post("/{importType}/detect", s.handleDetect)
			})

			// Imports are bounded by IMPORT_TIMEOUT instead of the request timeout.
			r.Post("/{importType}", s.handleImport)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Limiter returns the import limiter so callers can drain it on shutdown.
func (s *Server) Limiter() *core.ImportLimiter {
	return s.limiter
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

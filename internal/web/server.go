// Package web provides the HTTP server and handlers for match applications.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fineplay-930/apply/internal/config"
	"github.com/fineplay-930/apply/internal/core"
	mw "github.com/fineplay-930/apply/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP server for the application service.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	limiter *rateLimiter
	server  *http.Server
}

// NewServer creates a Server with its router and middleware built.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.SubmitPerMinute, rateWindow)
	}
	s.setupMiddleware()
	s.setupRoutes()

	sc := cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	s.router.Use(cors.Handler(corsOptions(s.cfg.CORS.AllowedOrigins)))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Post("/submit-application", s.handleSubmit)
	})
}

// Start begins listening for HTTP requests. It returns nil once Shutdown
// has been called, including when Shutdown ran before Start.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr, "service", s.cfg.Server.ServiceName)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting for in-flight submissions.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// corsOptions allows the configured origins. A "*" entry allows any origin
// by echoing it back, which keeps credentialed requests working.
func corsOptions(origins []string) cors.Options {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return allowAll || allowed[origin]
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// JSON only, nothing to load
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

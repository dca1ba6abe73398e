// Package api provides the HTTP API server exposing archive search and stats.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mailstash/mailstash/internal/config"
	"github.com/mailstash/mailstash/internal/scheduler"
	"github.com/mailstash/mailstash/internal/store"
)

// Archive defines the store operations the API serves.
type Archive interface {
	GetStats() (*store.Stats, error)
	GetEmail(id string) (*store.Email, error)
	ListEmails(limit int) ([]*store.Email, error)
	Search(query string, limit int) ([]*store.Email, error)
	EmailsByDomain(domain string, limit int) ([]*store.Email, error)
}

// SyncScheduler defines the scheduler operations the API exposes.
type SyncScheduler interface {
	IsScheduled(email string) bool
	TriggerSync(email string) error
	Status() []AccountStatus
	IsRunning() bool
}

// AccountStatus is an alias for scheduler.AccountStatus — single source of truth.
type AccountStatus = scheduler.AccountStatus

// Server is the HTTP API server.
type Server struct {
	cfg       *config.Config
	archive   Archive
	scheduler SyncScheduler // optional
	logger    *slog.Logger
	router    chi.Router
	server    *http.Server
}

// NewServer creates an API server over the given archive. sched may be nil
// when no scheduler is running.
func NewServer(cfg *config.Config, archive Archive, sched SyncScheduler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		archive:   archive,
		scheduler: sched,
		logger:    logger,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/stats", s.handleStats)
		r.Get("/messages", s.handleListMessages)
		r.Get("/messages/{id}", s.handleGetMessage)
		r.Get("/search", s.handleSearch)
		r.Get("/domains/{domain}", s.handleByDomain)
		r.Get("/scheduler/status", s.handleSchedulerStatus)
		r.Post("/sync/{account}", s.handleTriggerSync)
	})

	return r
}

// Start begins listening for HTTP requests on the loopback interface.
func (s *Server) Start() error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.cfg.Server.APIPort))

	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("API server running without authentication — set [server] api_key in config.toml")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs each request with its status and duration.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

// authMiddleware enforces the configured API key via the X-API-Key header.
// An empty configured key disables authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.APIKey != "" {
			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.Server.APIKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

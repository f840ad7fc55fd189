// Package server exposes the backend over HTTP: conversation and message
// endpoints, per-user settings, character memories, the notification
// WebSocket, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/chat"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/compact"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/notify"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// Server wires the HTTP surface to the services.
type Server struct {
	listen    string
	store     *store.Store
	chat      *chat.Service
	memories  *memory.Store
	compactor *compact.Orchestrator
	hub       *notify.Hub
	logger    *slog.Logger
}

// New creates a Server.
func New(
	listen string,
	st *store.Store,
	chatSvc *chat.Service,
	memories *memory.Store,
	compactor *compact.Orchestrator,
	hub *notify.Hub,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listen:    listen,
		store:     st,
		chat:      chatSvc,
		memories:  memories,
		compactor: compactor,
		hub:       hub,
		logger:    logger,
	}
}

// Router constructs the chi mux with all routes wired.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/ws", s.hub)

	r.Route("/api", func(r chi.Router) {
		r.Post("/characters", s.handleCreateCharacter)
		r.Get("/characters/{id}/memories", s.handleMemories)

		r.Post("/conversations", s.handleCreateConversation)
		r.Get("/conversations/{id}/messages", s.handleMessages)
		r.Post("/conversations/{id}/messages", s.handleSendMessage)
		r.Post("/conversations/{id}/compact", s.handleCompact)

		r.Get("/users/{id}/settings", s.handleGetSettings)
		r.Put("/users/{id}/settings", s.handlePutSettings)
	})

	return r
}

// ListenAndServe blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestLogger logs each request with method, path, and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// Package api exposes the assistant over HTTP.
//
// Endpoints:
//
//	GET  /                  service descriptor
//	GET  /health            liveness probe
//	GET  /ready             readiness probe (pings Postgres)
//	POST /signup            register a phone number
//	POST /chat              one conversation turn
//	GET  /history/{phone}   full conversation, oldest first
//	DELETE /history/{phone} clear the conversation
//	POST /reindex           rebuild the document index
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - users.go: signup endpoint
//   - chat.go: chat and history endpoints
//   - system.go: descriptor, health, and reindex endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to shut out slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Chat turns can take a while; this must exceed the turn timeout.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP gateway.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	users  *UserHandler
	chat   *ChatHandler
	system *SystemHandler
}

// Deps collects everything the gateway serves.
type Deps struct {
	Store     ChatStore
	Engine    Responder
	Reindexer Reindexer
	Pinger    Pinger
	Info      ServiceInfo
	Logger    *slog.Logger
}

// NewServer registers all routes and returns the server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:    mux,
		logger: deps.Logger,
		users:  NewUserHandler(deps.Store, deps.Logger),
		chat:   NewChatHandler(deps.Store, deps.Engine, deps.Logger),
		system: NewSystemHandler(deps.Reindexer, deps.Pinger, deps.Info, deps.Logger),
	}

	s.users.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.system.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger))
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

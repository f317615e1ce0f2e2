// Package api provides the HTTP JSON API for the chatbot backend.
//
// Endpoints:
//
//	POST /auth/signup  →  register a user
//	POST /auth/login   →  issue a bearer token (form-encoded credentials)
//	GET  /auth/me      →  current user (bearer token required)
//	GET  /             →  liveness message
//	GET  /ready        →  readiness probe (database ping)
//	POST /chat         →  retrieval-augmented answer
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, request-id, logging, rate limiting
//   - auth.go: signup/login/me handlers
//   - chat.go: chat handler
//   - health.go: liveness and readiness
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/robobook/chatbot-backend/internal/auth"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout caps header read time (Slowloris protection).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing a response; chat
	// responses wait on the model, so this is generous.
	WriteTimeout = 3 * time.Minute

	// IdleTimeout bounds keep-alive connections.
	IdleTimeout = 2 * time.Minute
)

// Deps carries everything the server needs. Handlers receive their
// dependencies from here; there is no package-level state.
type Deps struct {
	Users    auth.UserStore
	Tokens   *auth.TokenManager
	Answerer Answerer

	// Pool backs the readiness probe. May be nil in tests.
	Pool *pgxpool.Pool

	// RateRPS/RateBurst configure the request rate limit.
	// RateRPS <= 0 disables limiting.
	RateRPS   float64
	RateBurst int

	Logger *slog.Logger
}

// Server is the HTTP server for the chatbot backend.
type Server struct {
	mux     *http.ServeMux
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	NewHealthHandler(deps.Pool, logger).RegisterRoutes(mux)
	NewAuthHandler(deps.Users, deps.Tokens, logger).RegisterRoutes(mux)
	NewChatHandler(deps.Answerer, logger).RegisterRoutes(mux)

	var limiter *rate.Limiter
	if deps.RateRPS > 0 {
		burst := deps.RateBurst
		if burst <= 0 {
			burst = int(deps.RateRPS)
		}
		limiter = rate.NewLimiter(rate.Limit(deps.RateRPS), burst)
	}

	return &Server{mux: mux, limiter: limiter, logger: logger}
}

// Handler returns the mux with middleware applied.
// Order: recovery → request-id → logging → rate limit → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.limiter),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
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

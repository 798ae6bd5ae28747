// Package api provides the HTTP surface: session minting, synchronous
// and streaming chat, image upload, and health probes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sago-labs/sago/internal/provider"
	"github.com/sago-labs/sago/internal/relay"
)

// DefaultMaxUploadBytes caps multipart upload bodies when the server
// config leaves the limit unset.
const DefaultMaxUploadBytes int64 = 50 << 20

// ChatRelay is the relay surface the handlers use.
type ChatRelay interface {
	Send(ctx context.Context, req relay.Request) (string, error)
	Stream(ctx context.Context, req relay.Request, cb provider.StreamCallback) (string, error)
}

// ServerConfig contains configuration for creating an API server.
type ServerConfig struct {
	Logger         *slog.Logger
	Relay          ChatRelay                   // Required: chat orchestration
	CORSOrigins    []string                    // Optional: empty disables CORS
	MaxUploadBytes int64                       // Optional: defaults to DefaultMaxUploadBytes
	ReadyCheck     func(context.Context) error // Optional: backing-store probe for /ready
}

// Server is the HTTP server with all routes configured.
type Server struct {
	handler    http.Handler
	logger     *slog.Logger
	readyCheck func(context.Context) error
}

// NewServer wires routes and middleware. Health probes bypass the
// middleware chain so container orchestrators get cheap, quiet checks.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Relay == nil {
		return nil, errors.New("relay is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	s := &Server{logger: logger, readyCheck: cfg.ReadyCheck}

	sessions := newSessionHandler(logger)
	chat := newChatHandler(cfg.Relay, logger)
	upload := newUploadHandler(maxUpload, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/session", sessions.create)
	mux.HandleFunc("POST /api/v1/chat", chat.send)
	mux.HandleFunc("POST /api/v1/chat/stream", chat.stream)
	mux.HandleFunc("POST /api/v1/upload", upload.handle)

	chain := recoveryMiddleware(logger)(
		loggingMiddleware(logger)(
			corsMiddleware(cfg.CORSOrigins)(mux)))

	top := http.NewServeMux()
	top.HandleFunc("GET /health", s.health)
	top.HandleFunc("GET /ready", s.ready)
	top.Handle("/", chain)

	s.handler = top
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (*Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ready reports whether the backing store answers. Without a check
// configured it degrades to a liveness probe.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		if err := s.readyCheck(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

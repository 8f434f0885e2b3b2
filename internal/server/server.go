package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/community-site/internal/auth"
	"github.com/hongminglow/community-site/internal/config"
	"github.com/hongminglow/community-site/internal/events"
	"github.com/hongminglow/community-site/internal/http/handlers"
	"github.com/hongminglow/community-site/internal/logging"
	"github.com/hongminglow/community-site/internal/middleware"
	"github.com/hongminglow/community-site/internal/storage"
	"github.com/hongminglow/community-site/internal/upload"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store   storage.Store
	Uploads upload.Delegate
	Events  events.Publisher
	Logger  logging.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.UploadTimeout + 10*time.Second,
		WriteTimeout:      cfg.UploadTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler builds the full middleware-wrapped route tree.
func Handler(cfg config.Config, deps Deps) http.Handler {
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), deps.Store).Register(mux)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	guard := middleware.NewSessionGuard(tokens, deps.Store, cfg.CookieName, deps.Logger)

	handlers.NewAuthHandler(deps.Store, tokens, &cfg, deps.Logger).Register(mux, guard)

	opts := handlers.ContentOptions{MaxUploadBytes: cfg.MaxUploadBytes, UploadTimeout: cfg.UploadTimeout}
	for _, desc := range handlers.Descriptors() {
		handlers.NewContentHandler(desc, deps.Store, deps.Uploads, deps.Events, deps.Logger, opts).Register(mux, guard)
	}

	return middleware.CORS(cfg.CORSOrigins, middleware.Tracing(middleware.MuxRoute(mux), middleware.Logging(deps.Logger, mux)))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

// Package server exposes search and indexing over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/logging"
	"github.com/alexSpace56/data-navigator/internal/query"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

// Name is reported by the root endpoint
const Name = "Data Navigator API"

const shutdownTimeout = 10 * time.Second

// Config holds the HTTP-facing settings
type Config struct {
	RequestTimeout time.Duration
	DefaultLimit   int
	// Debug adds raw error text to responses
	Debug   bool
	Version string
}

// Indexer runs one indexing pass
type Indexer interface {
	Index(ctx context.Context, opts indexer.Options) (indexer.Report, error)
}

// Dependencies are the collaborators behind the routes
type Dependencies struct {
	Engine   query.Engine
	Composer answer.Composer
	Indexer  Indexer
	Index    storage.Index
}

// Server serves the API
type Server struct {
	config Config
	deps   Dependencies
	router *gin.Engine
	server *http.Server

	// indexing serialises index runs; a second request gets 409
	indexing sync.Mutex
}

// New builds the router; Dependencies must all be set
func New(cfg Config, deps Dependencies) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		router: gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(loggingMiddleware())
	s.router.Use(corsMiddleware())
	s.router.Use(timeoutMiddleware(s.config.RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	{
		api.POST("/query", s.query)
		api.POST("/index", s.index)
		api.GET("/stats", s.stats)
	}
}

// Router returns the underlying handler, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logging.WithField("addr", addr).Info("HTTP server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, errors.ErrTypeNetwork, "HTTP server failed")
		}

		return nil
	case <-ctx.Done():
	}

	logging.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.ErrTypeNetwork, "HTTP server shutdown failed")
	}

	return nil
}

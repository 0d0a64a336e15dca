// Package server exposes the rotation solver and collision monitor over a
// JSON HTTP API with a websocket status feed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/config"
	"github.com/mk-obs/telops/internal/ltcs"
	"github.com/mk-obs/telops/internal/rotcalc"
	"github.com/mk-obs/telops/internal/site"
	"github.com/mk-obs/telops/pkg/healthcheck"
)

// Server hosts the operations API.
type Server struct {
	cfg    config.HTTPConfig
	logger *zap.Logger

	site      *site.Site
	monitor   *ltcs.Monitor
	solver    *rotcalc.Solver
	resultLog *rotcalc.ResultLog
	health    *healthcheck.Engine

	auth *authenticator

	onSolve func(rotcalc.Result)

	stopCh chan struct{}
	once   sync.Once
}

// OnSolve registers a callback invoked with every successful solve, e.g.
// to announce the result on the operations bus. Call before Start.
func (s *Server) OnSolve(fn func(rotcalc.Result)) {
	s.onSolve = fn
}

// New creates a server over the assembled components.
func New(cfg config.HTTPConfig, st *site.Site, monitor *ltcs.Monitor,
	solver *rotcalc.Solver, resultLog *rotcalc.ResultLog,
	health *healthcheck.Engine, logger *zap.Logger) (*Server, error) {

	if logger == nil {
		logger = zap.NewNop()
	}
	auth, err := newAuthenticator(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}

	return &Server{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "api_server")),
		site:      st,
		monitor:   monitor,
		solver:    solver,
		resultLog: resultLog,
		health:    health,
		auth:      auth,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start runs the HTTP server until the context is cancelled or Stop is
// called. It blocks.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRouter()

	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("address", httpServer.Addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	case <-s.stopCh:
		s.logger.Info("Server stop requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during HTTP server shutdown", zap.Error(err))
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// Stop initiates a graceful shutdown.
func (s *Server) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(RecoveryMiddleware(s.logger))
	router.Use(LoggingMiddleware(s.logger))

	router.GET("/healthz", s.handleHealth)
	router.GET("/ws", s.handleWebsocket)
	router.POST("/api/v1/login", s.handleLogin)

	api := router.Group("/api/v1")
	api.GET("/collisions", s.handleCollisions)
	api.GET("/rotations", s.handleRotationLog)
	api.GET("/site", s.handleSite)
	api.GET("/pointings", s.handlePointings)

	protected := router.Group("/api/v1")
	protected.Use(s.auth.Middleware())
	protected.POST("/rotations", s.handleSolveRotation)
	protected.POST("/rotations/clear", s.handleClearRotationLog)

	return router
}

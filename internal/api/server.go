// Package api is the HTTP surface over the lifecycle controller: gin
// routing, request logging, panic recovery, and the
// {"message","status",...} response envelope every handler writes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stakflo/policystore/internal/lifecycle"
	"github.com/stakflo/policystore/internal/obsv"
)

// Config configures the HTTP server.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// DefaultConfig returns sane defaults for the HTTP server.
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodySize:  4 * 1024 * 1024,
	}
}

// Server is the HTTP front end over a lifecycle.Controller.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	controller *lifecycle.Controller
	metrics    *obsv.Metrics
	logger     *zap.Logger
	config     Config
	startTime  time.Time
}

// New builds a Server and registers all routes. metrics may be nil, in
// which case request metrics are not recorded.
func New(cfg Config, controller *lifecycle.Controller, logger *zap.Logger, metrics *obsv.Metrics) (*Server, error) {
	if controller == nil {
		return nil, fmt.Errorf("lifecycle controller is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:     gin.New(),
		controller: controller,
		metrics:    metrics,
		logger:     logger,
		config:     cfg,
		startTime:  time.Now(),
	}

	s.engine.Use(s.requestIDMiddleware(), s.loggingMiddleware(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered", zap.String("request_id", requestID(c)), zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "internal error",
			"status":  "error",
			"error":   "internal error",
		})
	}))
	s.engine.MaxMultipartMemory = cfg.MaxBodySize
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// Start begins serving HTTP requests and blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting policy document HTTP server", zap.Int("port", s.config.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down policy document HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Engine exposes the underlying gin.Engine for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)

	policies := s.engine.Group("/policy")
	policies.POST("/initialise", s.handleInitialise)
	policies.POST("/create-initialised", s.handleCreateInitialVersion)
	policies.POST("/update", s.handleUpdate)
	policies.POST("/data", s.handleData)
	policies.POST("/download", s.handleDownload)
	policies.POST("/submit", s.handleSubmit)
	policies.POST("/publish", s.handlePublish)
	policies.POST("/archive", s.handleArchive)
	policies.POST("/approve", s.handleApprove)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ok",
		"status":  "success",
		"uptime":  time.Since(s.startTime).String(),
	})
}

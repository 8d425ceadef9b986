// Package main provides the entry point for policystored, the
// multi-tenant policy document store service.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stakflo/policystore/internal/api"
	"github.com/stakflo/policystore/internal/audit"
	"github.com/stakflo/policystore/internal/condition"
	"github.com/stakflo/policystore/internal/config"
	"github.com/stakflo/policystore/internal/generator"
	"github.com/stakflo/policystore/internal/lifecycle"
	"github.com/stakflo/policystore/internal/obsv"
	"github.com/stakflo/policystore/internal/reconstruct"
	"github.com/stakflo/policystore/internal/render"
	"github.com/stakflo/policystore/internal/store"
	"github.com/stakflo/policystore/internal/templates"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("POLICYSTORE_CONFIG")
	cfg, err := config.Load(configPath, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting policystored",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("metrics_port", cfg.MetricsPort),
	)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database connection", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	st, err := store.New(db)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}

	var cache reconstruct.Cache
	if cfg.CacheEnabled && cfg.RedisAddr != "" {
		redisCfg := reconstruct.DefaultRedisConfig()
		redisCfg.TTL = cfg.CacheTTL
		redisCfg.Host, redisCfg.Port = splitHostPort(cfg.RedisAddr)
		rc, err := reconstruct.NewRedisCache(redisCfg)
		if err != nil {
			logger.Warn("failed to connect to redis, continuing without reconstruction cache", zap.Error(err))
		} else {
			cache = rc
			defer rc.Close()
		}
	}
	reconstructor := reconstruct.New(st, cache, logger)

	conditionEngine, err := condition.NewEngine()
	if err != nil {
		logger.Fatal("failed to initialize condition engine", zap.Error(err))
	}

	genClient := generator.New(nil, generator.Config{
		BaseURL: cfg.GeneratorURL,
		Timeout: cfg.GeneratorTimeout,
	}, logger)

	renderer := render.NewGopdfRenderer(render.GopdfConfig{}, logger)

	auditLogger, err := audit.NewLoggerFromConfig(audit.Config{
		Enabled: true,
		Type:    "stdout",
	})
	if err != nil {
		logger.Fatal("failed to initialize audit logger", zap.Error(err))
	}
	defer auditLogger.Close()

	controller := lifecycle.New(st, reconstructor, conditionEngine, genClient, renderer, auditLogger, logger, lifecycle.Config{
		ParentLogoURL: cfg.ParentLogoURL,
	})

	metrics := obsv.New("policystore")

	apiServer, err := api.New(api.Config{
		Port:         cfg.HTTPPort,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodySize:  4 * 1024 * 1024,
	}, controller, logger, metrics)
	if err != nil {
		logger.Fatal("failed to initialize HTTP server", zap.Error(err))
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.HTTPHandler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	var watcher *templates.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.TemplateSeedDir != "" {
		watcher, err = templates.New(cfg.TemplateSeedDir, st, logger)
		if err != nil {
			logger.Fatal("failed to initialize template watcher", zap.Error(err))
		}
		if err := watcher.Watch(watchCtx); err != nil {
			logger.Fatal("failed to start template watcher", zap.Error(err))
		}
		go drainReloadEvents(watcher, logger)
	}

	errChan := make(chan error, 2)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting HTTP server", zap.Int("port", cfg.HTTPPort))
		errChan <- apiServer.Start()
	}()

	go func() {
		logger.Info("starting metrics server", zap.Int("port", cfg.MetricsPort))
		errChan <- metricsSrv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if watcher != nil {
			watchCancel()
			watcher.Stop()
		}

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down HTTP server", zap.Error(err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics server", zap.Error(err))
		}
	}

	logger.Info("policystored stopped")
}

func drainReloadEvents(w *templates.Watcher, logger *zap.Logger) {
	for event := range w.Events() {
		if event.Error != nil {
			logger.Error("template seed reload failed", zap.Error(event.Error))
			continue
		}
		logger.Info("template seed reloaded", zap.Int("count", len(event.Loaded)))
	}
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	return host, port
}

func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}

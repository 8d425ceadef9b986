// Package config loads server configuration from a YAML file, then lets
// environment variables and command-line flags override it, following
// the layering the teacher's entry point applies with flag defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs policystored needs to run.
type Config struct {
	HTTPPort        int           `yaml:"http_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	DatabaseURL     string        `yaml:"database_url"`
	RedisAddr       string        `yaml:"redis_addr"`
	CacheEnabled    bool          `yaml:"cache_enabled"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	TemplateSeedDir string        `yaml:"template_seed_dir"`
	GeneratorURL    string        `yaml:"generator_url"`
	GeneratorTimeout time.Duration `yaml:"generator_timeout"`
	ParentLogoURL   string        `yaml:"parent_logo_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the baseline configuration before file, env, or flag
// overrides are applied.
func Default() Config {
	return Config{
		HTTPPort:         8080,
		MetricsPort:      9090,
		LogLevel:         "info",
		LogFormat:        "json",
		DatabaseURL:      "postgres://localhost:5432/policystore?sslmode=disable",
		RedisAddr:        "",
		CacheEnabled:     false,
		CacheTTL:         5 * time.Minute,
		TemplateSeedDir:  "",
		GeneratorURL:     "",
		GeneratorTimeout: 100 * time.Second,
		ParentLogoURL:    "",
		ShutdownTimeout:  30 * time.Second,
	}
}

// Load builds a Config by layering a YAML file (if path is non-empty and
// exists), then environment variables, then command-line flags, each
// overriding the previous layer.
func Load(path string, args []string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.loadEnv()

	if err := cfg.loadFlags(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("POLICYSTORE_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = n
		}
	}
	if v := os.Getenv("POLICYSTORE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MetricsPort = n
		}
	}
	if v := os.Getenv("POLICYSTORE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("POLICYSTORE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("POLICYSTORE_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("POLICYSTORE_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
		c.CacheEnabled = true
	}
	if v := os.Getenv("POLICYSTORE_TEMPLATE_SEED_DIR"); v != "" {
		c.TemplateSeedDir = v
	}
	if v := os.Getenv("POLICYSTORE_GENERATOR_URL"); v != "" {
		c.GeneratorURL = v
	}
	if v := os.Getenv("POLICYSTORE_PARENT_LOGO_URL"); v != "" {
		c.ParentLogoURL = v
	}
}

func (c *Config) loadFlags(args []string) error {
	fs := flag.NewFlagSet("policystored", flag.ContinueOnError)

	httpPort := fs.Int("http-port", c.HTTPPort, "HTTP server port")
	metricsPort := fs.Int("metrics-port", c.MetricsPort, "Prometheus metrics port")
	logLevel := fs.String("log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", c.LogFormat, "Log format (json, console)")
	databaseURL := fs.String("database-url", c.DatabaseURL, "PostgreSQL connection string")
	redisAddr := fs.String("redis-addr", c.RedisAddr, "Redis address for the reconstruction cache (empty disables caching)")
	cacheTTL := fs.Duration("cache-ttl", c.CacheTTL, "Reconstruction cache TTL")
	templateSeedDir := fs.String("template-seed-dir", c.TemplateSeedDir, "Directory of PolicyTemplate seed YAML files to hot-reload (empty disables)")
	generatorURL := fs.String("generator-url", c.GeneratorURL, "Upstream HTML generator endpoint")
	generatorTimeout := fs.Duration("generator-timeout", c.GeneratorTimeout, "Upstream generator request timeout")
	parentLogoURL := fs.String("parent-logo-url", c.ParentLogoURL, "Parent (\"powered by\") logo URL shown in the PDF header")
	shutdownTimeout := fs.Duration("shutdown-timeout", c.ShutdownTimeout, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c.HTTPPort = *httpPort
	c.MetricsPort = *metricsPort
	c.LogLevel = *logLevel
	c.LogFormat = *logFormat
	c.DatabaseURL = *databaseURL
	c.RedisAddr = *redisAddr
	if *redisAddr != "" {
		c.CacheEnabled = true
	}
	c.CacheTTL = *cacheTTL
	c.TemplateSeedDir = *templateSeedDir
	c.GeneratorURL = *generatorURL
	c.GeneratorTimeout = *generatorTimeout
	c.ParentLogoURL = *parentLogoURL
	c.ShutdownTimeout = *shutdownTimeout

	return nil
}

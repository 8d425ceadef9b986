package audit

import (
	"database/sql"
	"fmt"
)

// Config selects and configures the audit Writer, adapted from the
// teacher's internal/audit.Config.
type Config struct {
	Enabled bool
	// Type is one of "stdout", "file", "postgres".
	Type string

	FilePath       string
	FileMaxSizeMB  int
	FileMaxAgeDays int
	FileMaxBackups int

	DB *sql.DB
}

// DefaultConfig returns local-development defaults (stdout, enabled).
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Type:           "stdout",
		FileMaxSizeMB:  100,
		FileMaxAgeDays: 30,
		FileMaxBackups: 10,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Type {
	case "stdout":
	case "file":
		if c.FilePath == "" {
			return fmt.Errorf("file path is required for file audit output")
		}
	case "postgres":
		if c.DB == nil {
			return fmt.Errorf("db handle is required for postgres audit output")
		}
	default:
		return fmt.Errorf("invalid audit type: %s (must be stdout, file, or postgres)", c.Type)
	}
	return nil
}

// NewLoggerFromConfig builds a Logger from Config, returning a no-op
// writer when auditing is disabled.
func NewLoggerFromConfig(cfg Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audit config: %w", err)
	}

	if !cfg.Enabled {
		return NewLogger(noopWriter{}, nil), nil
	}

	var (
		writer Writer
		err    error
	)
	switch cfg.Type {
	case "file":
		writer, err = NewFileWriter(cfg.FilePath, cfg.FileMaxSizeMB, cfg.FileMaxAgeDays, cfg.FileMaxBackups)
	case "postgres":
		writer = NewPostgresWriter(cfg.DB)
	default:
		writer = NewStdoutWriter()
	}
	if err != nil {
		return nil, err
	}

	return NewLogger(writer, nil), nil
}

type noopWriter struct{}

func (noopWriter) Write(Event) error { return nil }
func (noopWriter) Close() error      { return nil }

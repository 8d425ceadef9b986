package audit

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// stdoutWriter writes audit events as JSON lines to stdout, used as the
// local-development default.
type stdoutWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutWriter builds a Writer over os.Stdout.
func NewStdoutWriter() Writer {
	return &stdoutWriter{w: os.Stdout}
}

func (w *stdoutWriter) Write(event Event) error {
	line, err := jsonLine(event)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(line)
	return err
}

func (w *stdoutWriter) Close() error { return nil }

// fileWriter writes audit events to a rotating log file via lumberjack,
// grounded on the teacher's internal/audit.fileWriter.
type fileWriter struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
}

// NewFileWriter opens (creating directories as needed) a rotating audit
// log file.
func NewFileWriter(path string, maxSizeMB, maxAgeDays, maxBackups int) (Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &fileWriter{
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxAge:     maxAgeDays,
			MaxBackups: maxBackups,
			LocalTime:  true,
			Compress:   true,
		},
	}, nil
}

func (w *fileWriter) Write(event Event) error {
	line, err := jsonLine(event)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.logger.Write(line)
	return err
}

func (w *fileWriter) Close() error {
	return w.logger.Close()
}

// postgresWriter persists audit events to a table in the service's own
// database, grounded on the teacher's internal/audit/postgres_store.go
// "audit events live next to the data they describe" pattern.
type postgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter builds a Writer over an existing audit_log table
// (internal/db/migrations/0004_audit_log.up.sql).
func NewPostgresWriter(db *sql.DB) Writer {
	return &postgresWriter{db: db}
}

func (w *postgresWriter) Write(event Event) error {
	_, err := w.db.Exec(`
		INSERT INTO audit_log (event_type, org_policy_id, version, actor, success, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(event.EventType), event.OrgPolicyID, event.Version, event.Actor, event.Success, event.Detail, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (w *postgresWriter) Close() error { return nil }

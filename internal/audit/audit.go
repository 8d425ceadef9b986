// Package audit records an append-only trail of policy lifecycle
// operations: who did what to which (org_policy_id, version) and
// whether it succeeded. Adapted from the teacher's internal/audit
// package (Writer/Config/file-rotation shape) but narrowed to the seven
// lifecycle event types and a single Record call, since this service's audit
// surface is the lifecycle controller, not a general authorization log.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names the lifecycle operation an Event records.
type EventType string

const (
	EventInitialise          EventType = "initialise"
	EventCreateInitialVersion EventType = "create_initial_version"
	EventUpdate              EventType = "update"
	EventSubmit              EventType = "submit"
	EventPublish             EventType = "publish"
	EventArchive             EventType = "archive"
	EventApprove             EventType = "approve"
)

// Event is one audit record.
type Event struct {
	Timestamp   time.Time  `json:"timestamp"`
	EventType   EventType  `json:"event_type"`
	OrgPolicyID *uuid.UUID `json:"org_policy_id,omitempty"`
	Version     string     `json:"version,omitempty"`
	Actor       string     `json:"actor,omitempty"`
	Success     bool       `json:"success"`
	Detail      string     `json:"detail,omitempty"`
}

// Writer persists a single Event. Implementations must not block the
// caller meaningfully; Logger.Record logs and swallows writer errors so
// auditing failures never fail the underlying lifecycle operation.
type Writer interface {
	Write(event Event) error
	Close() error
}

// Logger records lifecycle Events through a Writer, never propagating
// write failures to callers.
type Logger struct {
	writer Writer
	logger *zap.Logger
}

// NewLogger wraps a Writer. Pass a nil zap logger to use a no-op one.
func NewLogger(writer Writer, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{writer: writer, logger: logger}
}

// Record writes an audit event, logging (but not returning) any failure
// to persist it — an audit-trail outage must never block policy writes.
func (l *Logger) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := l.writer.Write(event); err != nil {
		l.logger.Warn("failed to write audit event",
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}
}

// Close releases the underlying writer.
func (l *Logger) Close() error {
	return l.writer.Close()
}

// jsonLine renders an Event as a single JSON line, shared by the stdout
// and file writers.
func jsonLine(event Event) ([]byte, error) {
	line, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	return append(line, '\n'), nil
}

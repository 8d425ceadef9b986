package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	events []Event
}

func (c *captureWriter) Write(event Event) error {
	c.events = append(c.events, event)
	return nil
}
func (c *captureWriter) Close() error { return nil }

func TestLoggerRecordWritesEvent(t *testing.T) {
	capture := &captureWriter{}
	logger := NewLogger(capture, nil)

	orgPolicyID := uuid.New()
	logger.Record(context.Background(), Event{
		EventType:   EventPublish,
		OrgPolicyID: &orgPolicyID,
		Version:     "2.0",
		Success:     true,
	})

	require.Len(t, capture.events, 1)
	assert.Equal(t, EventPublish, capture.events[0].EventType)
	assert.False(t, capture.events[0].Timestamp.IsZero())
}

type failingWriter struct{}

func (failingWriter) Write(Event) error { return errSimulated }
func (failingWriter) Close() error      { return nil }

type writeError struct{}

func (*writeError) Error() string { return "simulated write failure" }

var errSimulated = &writeError{}

func TestLoggerRecordSwallowsWriteErrors(t *testing.T) {
	logger := NewLogger(failingWriter{}, nil)
	assert.NotPanics(t, func() {
		logger.Record(context.Background(), Event{EventType: EventApprove, Success: false})
	})
}

func TestStdoutWriterEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	w := &stdoutWriter{w: &buf}

	err := w.Write(Event{EventType: EventSubmit, Timestamp: time.Now(), Success: true})
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.NewDecoder(bufio.NewReader(&buf)).Decode(&decoded))
	assert.Equal(t, EventSubmit, decoded.EventType)
}

func TestFileWriterCreatesNestedDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "audit.log")

	w, err := NewFileWriter(path, 1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, w.Write(Event{EventType: EventArchive, Timestamp: time.Now(), Success: true}))
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

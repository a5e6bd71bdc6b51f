package authkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// AuditSink is an optional streaming mirror of the activity log. Sinks are
// fed after the durable store write and must tolerate being called from a
// single dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, entry ActivityLogEntry)
}

// NoOpSink discards entries.
type NoOpSink struct{}

// Emit implements [AuditSink].
func (NoOpSink) Emit(context.Context, ActivityLogEntry) {}

// ChannelSink forwards entries to a channel, primarily for tests and
// embedders that want to tail the log in-process.
type ChannelSink struct {
	entries chan ActivityLogEntry
}

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		entries: make(chan ActivityLogEntry, buffer),
	}
}

// Emit implements [AuditSink].
func (s *ChannelSink) Emit(ctx context.Context, entry ActivityLogEntry) {
	select {
	case s.entries <- entry:
	case <-ctx.Done():
	}
}

// Entries exposes the sink channel.
func (s *ChannelSink) Entries() <-chan ActivityLogEntry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink returns a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [AuditSink].
func (s *JSONWriterSink) Emit(ctx context.Context, entry ActivityLogEntry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

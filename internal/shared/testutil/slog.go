// Package testutil captures slog output so tests can assert on what a run
// logged without parsing JSON files.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured record with handler and record attrs merged.
// Group names prefix keys with a dot, as the JSON handler nests them.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Attr returns the value of key, if present
func (r LogRecord) Attr(key string) (any, bool) {
	v, ok := r.Attrs[key]
	return v, ok
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler records every log record. Handlers derived with
// WithAttrs or WithGroup share the same store.
type BufferedSlogHandler struct {
	store  *recordStore
	attrs  []slog.Attr
	prefix string
	t      *testing.T
}

// NewBufferedSlogHandler creates a handler that also echoes records to t.Log
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{store: &recordStore{}, t: t}
}

// NewTestLogger returns a logger writing into a fresh handler
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	h := NewBufferedSlogHandler(t)
	return slog.New(h), h
}

// CaptureDefault installs a capturing logger as slog's default for the rest
// of the test. Code under test that logs through slog.InfoContext and
// friends is captured.
func CaptureDefault(t *testing.T) *BufferedSlogHandler {
	t.Helper()
	logger, h := NewTestLogger(t)
	prev := slog.Default()
	slog.SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(prev) })
	return h
}

// Enabled implements slog.Handler. Every level is captured.
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

// WithGroup implements slog.Handler
func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// Records returns a copy of everything captured so far
func (h *BufferedSlogHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]LogRecord, len(h.store.records))
	copy(out, h.store.records)
	return out
}

// RecordsAt returns the records logged at level
func (h *BufferedSlogHandler) RecordsAt(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the first record whose message contains message
func (h *BufferedSlogHandler) Find(message string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, message) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// ContainsMessage reports whether any message contains message
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	_, ok := h.Find(message)
	return ok
}

// ContainsAttr reports whether any record carries key with value. Values
// are compared with ==, so pass the type slog stored (int64 for slog.Int).
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Count returns the number of captured records
func (h *BufferedSlogHandler) Count() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.records)
}

// Clear drops every captured record
func (h *BufferedSlogHandler) Clear() {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.records = nil
}

func (h *BufferedSlogHandler) dump(t *testing.T) {
	t.Helper()
	t.Log("captured logs:")
	for _, r := range h.Records() {
		t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}

// AssertLogContains fails unless a record at level contains message
func AssertLogContains(t *testing.T, h *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()
	for _, r := range h.RecordsAt(level) {
		if strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("no %s log containing %q", level, message)
	h.dump(t)
}

// AssertLogAttr fails unless some record carries key=value
func AssertLogAttr(t *testing.T, h *BufferedSlogHandler, key string, value any) {
	t.Helper()
	if !h.ContainsAttr(key, value) {
		t.Errorf("no log attribute %s=%v", key, value)
		h.dump(t)
	}
}

// AssertNoErrors fails if anything was logged at error level
func AssertNoErrors(t *testing.T, h *BufferedSlogHandler) {
	t.Helper()
	if errs := h.RecordsAt(slog.LevelError); len(errs) > 0 {
		for _, r := range errs {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}

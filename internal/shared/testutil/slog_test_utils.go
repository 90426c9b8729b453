package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// LogRecord is one captured slog record. Attribute keys inside groups are
// qualified with the group name ("request.id").
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordSink struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler keeps every record in memory. Handlers derived with
// WithAttrs or WithGroup write to the same sink.
type BufferedSlogHandler struct {
	sink   *recordSink
	attrs  map[string]any
	prefix string
}

// NewBufferedSlogHandler creates an empty handler. When t is not nil the
// captured records are printed if the test fails.
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	h := &BufferedSlogHandler{sink: &recordSink{}, attrs: map[string]any{}}
	if t != nil {
		t.Cleanup(func() {
			if !t.Failed() {
				return
			}
			for _, r := range h.GetRecords() {
				t.Logf("[%s] %s %v", r.Level, r.Message, r.Attrs)
			}
		})
	}
	return h
}

// NewTestLogger returns a logger backed by a BufferedSlogHandler.
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	h := NewBufferedSlogHandler(t)
	return slog.New(h), h
}

func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})

	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, LogRecord{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs})
	h.sink.mu.Unlock()
	return nil
}

func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := h.clone()
	for _, a := range attrs {
		flatten(child.attrs, child.prefix, a)
	}
	return child
}

func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := h.clone()
	child.prefix = h.prefix + name + "."
	return child
}

func (h *BufferedSlogHandler) clone() *BufferedSlogHandler {
	attrs := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &BufferedSlogHandler{sink: h.sink, attrs: attrs, prefix: h.prefix}
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = v.Any()
}

// filter returns the records matching keep, in logging order.
func (h *BufferedSlogHandler) filter(keep func(LogRecord) bool) []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	var out []LogRecord
	for _, r := range h.sink.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// GetRecords returns a copy of every captured record.
func (h *BufferedSlogHandler) GetRecords() []LogRecord {
	return h.filter(func(LogRecord) bool { return true })
}

// GetRecordsByLevel returns the records logged at exactly level.
func (h *BufferedSlogHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	return h.filter(func(r LogRecord) bool { return r.Level == level })
}

// ContainsMessage reports whether a record message contains message.
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	return len(h.filter(func(r LogRecord) bool { return strings.Contains(r.Message, message) })) > 0
}

// ContainsAttr reports whether a record carries key with value. Integers
// logged with slog.Int are stored as int64.
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	return len(h.filter(func(r LogRecord) bool {
		v, ok := r.Attrs[key]
		return ok && v == value
	})) > 0
}

// Clear drops every captured record.
func (h *BufferedSlogHandler) Clear() {
	h.sink.mu.Lock()
	h.sink.records = nil
	h.sink.mu.Unlock()
}

// Count is the number of captured records.
func (h *BufferedSlogHandler) Count() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return len(h.sink.records)
}

// AssertLogContains fails t unless a record at level contains message.
func AssertLogContains(t *testing.T, handler *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()
	found := handler.filter(func(r LogRecord) bool {
		return r.Level == level && strings.Contains(r.Message, message)
	})
	assert.NotEmptyf(t, found, "no %s record containing %q", level, message)
}

// AssertLogAttr fails t unless some record carries key with expectedValue.
func AssertLogAttr(t *testing.T, handler *BufferedSlogHandler, key string, expectedValue any) {
	t.Helper()
	assert.Truef(t, handler.ContainsAttr(key, expectedValue), "no record with %s=%v", key, expectedValue)
}

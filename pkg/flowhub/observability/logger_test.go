package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records as JSON lines.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{buf: &bytes.Buffer{}, level: slog.LevelDebug}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *testHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testHandler) lastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(lines[i], &m); err == nil {
			return m
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds flow", func(t *testing.T) {
		h := newTestHandler()
		EnrichLogger(slog.New(h), "login").Info("hello")

		record := h.lastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "login", record["flow"])
		assert.Equal(t, "hello", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "login"))
	})
}

func TestLogHelpers(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
		msg   string
		attrs map[string]any
	}{
		{
			name:  "flow start",
			log:   func(l *slog.Logger) { LogFlowStart(l, "f", 3) },
			level: "INFO",
			msg:   "flow starting",
			attrs: map[string]any{"flow": "f", "bindings": float64(3)},
		},
		{
			name:  "flow stop",
			log:   func(l *slog.Logger) { LogFlowStop(l, "f", 10) },
			level: "INFO",
			msg:   "flow stopped",
			attrs: map[string]any{"flow": "f", "events_dispatched": float64(10)},
		},
		{
			name:  "hub startup",
			log:   func(l *slog.Logger) { LogHubStartup(l, 2, time.Second) },
			level: "INFO",
			msg:   "hub starting",
			attrs: map[string]any{"flows": float64(2)},
		},
		{
			name:  "hub shutdown",
			log:   func(l *slog.Logger) { LogHubShutdown(l, 2, 1) },
			level: "INFO",
			msg:   "hub shut down",
			attrs: map[string]any{"flows": float64(2), "failures": float64(1)},
		},
		{
			name:  "slow handler at configured level",
			log:   func(l *slog.Logger) { LogSlowHandler(l, slog.LevelWarn, "h", "LoginReq{}", 250*time.Millisecond) },
			level: "WARN",
			msg:   "slow handler",
			attrs: map[string]any{"handler": "h", "event": "LoginReq{}", "duration_ms": float64(250)},
		},
		{
			name:  "slow dispatch",
			log:   func(l *slog.Logger) { LogSlowDispatch(l, slog.LevelInfo, "e", 4, 2*time.Second) },
			level: "INFO",
			msg:   "slow dispatch",
			attrs: map[string]any{"chain_length": float64(4), "duration_ms": float64(2000)},
		},
		{
			name:  "long queue",
			log:   func(l *slog.Logger) { LogLongQueue(l, slog.LevelError, 5000) },
			level: "ERROR",
			msg:   "long queue",
			attrs: map[string]any{"length": float64(5000)},
		},
		{
			name:  "handler error",
			log:   func(l *slog.Logger) { LogHandlerError(l, "h", "e", boom) },
			level: "ERROR",
			msg:   "handler failed",
			attrs: map[string]any{"handler": "h", "error": "boom"},
		},
		{
			name:  "teardown error",
			log:   func(l *slog.Logger) { LogTeardownError(l, "f", "stop", boom) },
			level: "WARN",
			msg:   "teardown failed",
			attrs: map[string]any{"flow": "f", "operation": "stop", "error": "boom"},
		},
		{
			name:  "dispatch dropped",
			log:   func(l *slog.Logger) { LogDispatchDropped(l, "f", "e", "stopped") },
			level: "DEBUG",
			msg:   "event dropped",
			attrs: map[string]any{"flow": "f", "reason": "stopped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler()
			tt.log(slog.New(h))

			record := h.lastRecord()
			require.NotNil(t, record)
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, tt.msg, record["msg"])
			for k, v := range tt.attrs {
				assert.Equal(t, v, record[k], "attr %s", k)
			}
		})

		t.Run(tt.name+" nil logger", func(t *testing.T) {
			assert.NotPanics(t, func() { tt.log(nil) })
		})
	}
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5*time.Millisecond)
}

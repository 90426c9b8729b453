package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"statementcheck/internal/config"
)

func readLastEntry(t *testing.T, path string) map[string]interface{} {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "dir", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}
	if slog.Default() != logger {
		t.Error("InitializeLogger did not set the default logger")
	}

	logger.Info("test message", "key", "value")
	CloseLogFile()

	entry := readLastEntry(t, logFile)
	if entry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", entry["key"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", entry["level"])
	}
	if _, ok := entry["source"]; !ok {
		t.Error("Expected source location in log entry")
	}
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	dir := t.TempDir()
	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: filepath.Join(dir, "a.log")})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	second, _ := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: filepath.Join(dir, "b.log")})

	if first != second {
		t.Error("Second initialization replaced the logger")
	}
	if _, err := os.Stat(filepath.Join(dir, "b.log")); !os.IsNotExist(err) {
		t.Error("Second initialization opened a log file")
	}
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.InfoContext(ctx, "test with trace")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if entry["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", entry["trace_id"])
	}

	buf.Reset()
	logger.With("component", "x").Info("no context")
	if strings.Contains(buf.String(), "trace_id") {
		t.Error("trace_id added without a context value")
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level   string
		logged  []string
		dropped []string
	}{
		{level: "debug", logged: []string{"debug", "info"}},
		{level: "info", logged: []string{"info", "warn"}, dropped: []string{"debug"}},
		{level: "warning", logged: []string{"warn", "error"}, dropped: []string{"info"}},
		{level: "error", logged: []string{"error"}, dropped: []string{"warn"}},
		{level: "bogus", logged: []string{"info"}, dropped: []string{"debug"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(config.LoggingConfig{Level: tt.level}, &buf)

			logger.Debug("msg-debug")
			logger.Info("msg-info")
			logger.Warn("msg-warn")
			logger.Error("msg-error")

			for _, l := range tt.logged {
				if !strings.Contains(buf.String(), "msg-"+l) {
					t.Errorf("Expected %s message at level %s", l, tt.level)
				}
			}
			for _, l := range tt.dropped {
				if strings.Contains(buf.String(), "msg-"+l) {
					t.Errorf("Unexpected %s message at level %s", l, tt.level)
				}
			}
		})
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf).Info("plain", "k", "v")

	if !strings.Contains(buf.String(), "msg=plain") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Fatal("Expected trace ID to be generated")
	}

	if GetTraceID(EnsureTraceID(ctx)) != traceID {
		t.Error("EnsureTraceID changed existing trace ID")
	}
	if GetTraceID(context.Background()) != "" {
		t.Error("Expected empty trace ID")
	}
}

func TestLogOutput_Both(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	var stdout bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "both.log")
	w, err := logOutput(config.LoggingConfig{Output: "both", FilePath: logFile}, &stdout)
	if err != nil {
		t.Fatalf("logOutput failed: %v", err)
	}

	NewLogger(config.LoggingConfig{Level: "info"}, w).Info("statement analyzed")
	CloseLogFile()

	if !strings.Contains(stdout.String(), "statement analyzed") {
		t.Error("Expected the record on stdout")
	}
	if entry := readLastEntry(t, logFile); entry["msg"] != "statement analyzed" {
		t.Errorf("Expected the record in the file, got %v", entry["msg"])
	}
}

func TestLogOutput_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := logOutput(config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "x.log")}, io.Discard)
	if err == nil {
		t.Fatal("Expected an error when the log directory is a file")
	}
}

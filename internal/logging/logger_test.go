package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "explicit level", config: &Config{Level: LevelDebug, Output: &bytes.Buffer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Error("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("endpoint enabled", "ep", 1)
	logger.Info("domain opened", "domain", "verbs")
	if buf.Len() != 0 {
		t.Errorf("expected debug/info to be filtered at LevelWarn, got: %s", buf.String())
	}

	logger.Warn("completion queue overflow", "cq", 0)
	output := buf.String()
	if !strings.Contains(output, "[WARN]") || !strings.Contains(output, "cq=0") {
		t.Errorf("expected warn-level output, got: %s", output)
	}
}

func TestLoggerFormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Info("posted send", "endpoint", 3, "bytes", 4096)
	output := buf.String()
	if !strings.Contains(output, "posted send") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "endpoint=3") || !strings.Contains(output, "bytes=4096") {
		t.Errorf("expected formatted key=value args, got: %s", output)
	}
}

func TestLoggerPrintfCompatibility(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Printf("registered mr key=%d len=%d", 7, 4096)
	output := buf.String()
	if !strings.Contains(output, "registered mr key=7 len=4096") {
		t.Errorf("expected printf-formatted message, got: %s", output)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("progress manual", "domain", "cxi")
	if !strings.Contains(buf.String(), "progress manual") {
		t.Errorf("expected debug message, got: %s", buf.String())
	}

	buf.Reset()
	Info("fabric opened")
	if !strings.Contains(buf.String(), "fabric opened") {
		t.Errorf("expected info message, got: %s", buf.String())
	}

	buf.Reset()
	Warn("counter threshold missed")
	if !strings.Contains(buf.String(), "counter threshold missed") {
		t.Errorf("expected warn message, got: %s", buf.String())
	}

	buf.Reset()
	Error("completion error entry")
	if !strings.Contains(buf.String(), "completion error entry") {
		t.Errorf("expected error message, got: %s", buf.String())
	}
}

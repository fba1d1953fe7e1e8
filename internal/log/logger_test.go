package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerTagsRecordsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:     slog.LevelInfo,
		Component: ComponentWorker,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("sweep complete", "users", 3)

	line := buf.String()
	if !strings.Contains(line, FieldComponent+"="+ComponentWorker) {
		t.Errorf("log line missing component attr: %q", line)
	}
	if !strings.Contains(line, "users=3") {
		t.Errorf("log line missing caller attrs: %q", line)
	}
}

func TestWithComponentOverrides(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.WithComponent(ComponentWorker).Info("started")

	if !strings.Contains(buf.String(), FieldComponent+"="+ComponentWorker) {
		t.Errorf("log line missing overridden component: %q", buf.String())
	}
}

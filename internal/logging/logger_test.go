package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexSpace56/data-navigator/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(999).String())
}

func TestNewLoggerOutputs(t *testing.T) {
	stdout, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, stdout.sink.output)

	stderr, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, stderr.sink.output)

	_, err = NewLogger(config.LoggingConfig{Level: "info", Output: "syslog"})
	assert.Error(t, err)

	_, err = NewLogger(config.LoggingConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
}

func TestNewLoggerFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File:   logFile,
	})
	require.NoError(t, err)

	logger.Info("indexed")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"indexed"`)

	// writes after close are dropped, not panics
	logger.Info("after close")
}

func TestLoggerWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriterLogger(&buf, "info", "text")

	child := parent.WithField("component", "indexer").WithFields(map[string]interface{}{
		"documents": 3,
	})

	assert.Empty(t, parent.fields)
	assert.Equal(t, "indexer", child.fields["component"])
	assert.Equal(t, 3, child.fields["documents"])
}

func TestLoggerWithErrorNil(t *testing.T) {
	logger := NewWriterLogger(&bytes.Buffer{}, "info", "text")
	assert.Same(t, logger, logger.WithError(nil))
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "warn", "text")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Errorf("error %d", 7)

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "WARN warn message")
	assert.Contains(t, output, "ERROR error 7")
	assert.True(t, logger.Enabled(ErrorLevel))
	assert.False(t, logger.Enabled(InfoLevel))
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "info", "json")

	logger.WithField("request_id", "abc").ErrorWithErr("query failed", errors.New("boom"))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "query failed", entry.Message)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, "abc", entry.Fields["request_id"])
}

func TestLoggerTextFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "info", "text")

	logger.WithFields(map[string]interface{}{"b": 2, "a": 1, "c": 3}).Info("sorted")

	assert.Contains(t, buf.String(), "sorted {a=1 b=2 c=3}")
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewWriterLogger(&buf, "debug", "text"))
	t.Cleanup(func() { SetLogger(nil) })

	Info("global info")
	WithField("k", "v").Warn("global warn")
	Debugf("global %s", "debug")

	output := buf.String()
	assert.Contains(t, output, "global info")
	assert.Contains(t, output, "global warn {k=v}")
	assert.Contains(t, output, "global debug")
}

func TestGetLoggerFallback(t *testing.T) {
	SetLogger(nil)
	t.Cleanup(func() { SetLogger(nil) })

	assert.NotNil(t, GetLogger())
	assert.NotNil(t, WithField("k", "v"))
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewWriterLogger(&buf, "debug", "text"))
	t.Cleanup(func() { SetLogger(nil) })

	require.NoError(t, LoggerMiddleware("index", func() error { return nil }))

	err := LoggerMiddleware("query", func() error { return errors.New("embed failed") })
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "Operation completed successfully")
	assert.Contains(t, lines[3], "Operation failed")
	assert.Contains(t, lines[3], "error=embed failed")
}

package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labfit/internal/config"
)

func readLastEntry(t *testing.T, content []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = os.Stat(logFile)
	require.NoError(t, err, "log file should be created")

	logger.Info("test message", "key", "value")
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entry := readLastEntry(t, content)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := createLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	ctx := WithExperiment(WithRunID(context.Background(), "run-123"), "ohm")
	logger.InfoContext(ctx, "stage complete")

	entry := readLastEntry(t, buf.Bytes())
	assert.Equal(t, "run-123", entry["run_id"])
	assert.Equal(t, "ohm", entry["experiment"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := createLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "console"}, &buf)
	require.NoError(t, err)

	logger.InfoContext(WithRunID(context.Background(), "abc"), "hello")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "run_id=abc")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		debugOut bool
		warnOut  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := createLogger(config.LoggingConfig{Level: tt.level, Output: "console"}, &buf)
			require.NoError(t, err)

			logger.Debug("debug line")
			assert.Equal(t, tt.debugOut, strings.Contains(buf.String(), "debug line"))

			logger.Warn("warn line")
			assert.Equal(t, tt.warnOut, strings.Contains(buf.String(), "warn line"))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := NewRunContext(context.Background())
	runID := GetRunID(ctx)
	assert.NotEmpty(t, runID)

	assert.Equal(t, runID, GetRunID(EnsureRunID(ctx)), "EnsureRunID must keep an existing ID")
	assert.NotEmpty(t, GetRunID(EnsureRunID(context.Background())))
	assert.Empty(t, GetExperiment(ctx))
}

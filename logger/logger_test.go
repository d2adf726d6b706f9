package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pricewatch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestJSONConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.LogConfig{Level: "info", Format: "json", Environment: "prod"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("cycle finished", zap.Int("coins", 3))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "cycle finished", entry["msg"])
	assert.Equal(t, float64(3), entry["coins"])
	assert.Equal(t, config.AppName, entry["app"])
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricewatch.log")
	var buf bytes.Buffer
	log, err := newLogger(config.LogConfig{Level: "warn", Format: "console", OutputFile: path}, &buf)
	require.NoError(t, err)

	log.Info("ignored")
	log.Warn("rate limited")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"rate limited"`)
	assert.NotContains(t, string(data), "ignored")
	assert.Contains(t, buf.String(), "rate limited")
}

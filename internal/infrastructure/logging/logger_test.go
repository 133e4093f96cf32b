package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "unknown level")
}

func TestLoggerWritesStructuredOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	logger, err := New(Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Named("api").Info("hello", zap.String("k", "v"))
	logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"logger":"api"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestLevelFiltersOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	logger, err := New(Config{Level: "error", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Error("loud")
	logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestNopLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Named("x").With(zap.Int("n", 1)).Info("discarded")
	})
}

func TestMust(t *testing.T) {
	logger := Must(New(Config{Level: "info", OutputPaths: []string{filepath.Join(t.TempDir(), "m.log")}}))
	assert.NotNil(t, logger)

	assert.Panics(t, func() {
		Must(New(Config{Level: "bogus"}))
	})
}

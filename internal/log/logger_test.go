package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinbase-trader/internal/config"
)

func TestRunLogFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	assert.Equal(t, filepath.Join("logs", "trader_20240309_070501.log"), RunLogFileName("logs", now))
}

func TestNewLogger_WritesRunFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(config.LoggingConfig{
		Level:            "debug",
		Encoding:         "console",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		File: config.LogFileConfig{
			Enabled:   true,
			Dir:       dir,
			MaxSizeMB: 1,
		},
	})
	require.NoError(t, err)
	logger.Info("测试日志")
	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.NotZero(t, info.Size(), "expected log file to contain entries")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "loud", Encoding: "console"})
	assert.Error(t, err)
}

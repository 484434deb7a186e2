package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, err := NewLogger(LoggerConfig{Level: "warn", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	logger.Warn("written")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "loud", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	kv := NewKVLogger(zap.New(core))

	kv.Info("Draft submitted", "draft_id", int64(42), "actor", "alice")
	kv.Error("Save failed", "error", "disk full")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Draft submitted", entries[0].Message)
	assert.Equal(t, int64(42), entries[0].ContextMap()["draft_id"])
	assert.Equal(t, "alice", entries[0].ContextMap()["actor"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

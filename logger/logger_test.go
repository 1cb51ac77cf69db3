package logger

import (
	"os"
	"path/filepath"
	"testing"

	"dexcollector/config"

	"github.com/stretchr/testify/require"
)

// go test -v --run TestNewWithFile
func TestNewWithFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs", "collector.log")

	log, err := New(config.LogConfig{Level: "debug", Format: "json", OutputFile: out})
	require.NoError(t, err)

	log.Info("hello")
	_ = log.Sync()

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}

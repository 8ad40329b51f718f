package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gorover/core"
	"gorover/host/config"
)

func TestNewRejectsLevel(t *testing.T) {
	_, _, err := New("roverd", config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roverd.log")
	logger, closer, err := New("roverd", config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Infow("dispatch", "command", "FWD")
	logger.Debug("dropped below level")
	_ = logger.Sync()
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "roverd")
	assert.Contains(t, string(data), "command")
	assert.NotContains(t, string(data), "dropped below level")
}

func TestBridgeDebug(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	BridgeDebug(zap.New(obs).Sugar())
	defer DetachDebug()

	require.True(t, core.IsDebugEnabled())
	d := core.NewDispatcher(core.DefaultConfig(), nil)
	d.Dispatch("STP")

	entries := logs.FilterMessage("dispatch cmd=stop speed=0 ordinal=8").All()
	assert.Len(t, entries, 1)
}

func TestBridgeDebugDisabledAtInfo(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	BridgeDebug(zap.New(obs).Sugar())
	defer DetachDebug()

	assert.False(t, core.IsDebugEnabled())
	core.NewDispatcher(core.DefaultConfig(), nil).Dispatch("FWD")
	assert.Zero(t, logs.Len())
}

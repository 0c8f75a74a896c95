package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_LevelOverride(t *testing.T) {
	l, err := New("er-sync", "prod", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_BadLevelKeepsDefault(t *testing.T) {
	l, err := New("er-sync", "dev", "loud")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel), "dev config defaults to debug")
}

func TestL_LazyInit(t *testing.T) {
	mu.Lock()
	log, sugar = nil, nil
	mu.Unlock()

	assert.NotNil(t, L())
	assert.NotNil(t, S())
	assert.NotNil(t, Named("sync"))
	Sync()
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Helper()

	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNew(t *testing.T) {
	t.Helper()

	log, err := New(Config{Level: "debug", Format: "console", Development: true})
	require.NoError(t, err)

	child := log.With(String("cycle_id", "c1"))
	assert.NotPanics(t, func() {
		child.Info("hello", Int("n", 1), Strings("cities", []string{"pune"}))
	})
}

func TestNop(t *testing.T) {
	t.Helper()

	log := NewNop().With(String("k", "v"))
	log.Error("ignored", Any("x", 1))
	assert.NoError(t, log.Sync())
}

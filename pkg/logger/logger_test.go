package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithTaskID(context.Background(), "load_sales")
	ctx = WithConnectionID(ctx, "indexima_default")
	ctx = WithSessionID(ctx, "abc")

	FromContext(ctx, base).Info("connected")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "load_sales", fields["task_id"])
	assert.Equal(t, "indexima_default", fields["connection_id"])
	assert.Equal(t, "abc", fields["session_id"])
}

func TestFromContext_Empty(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	FromContext(context.Background(), zap.New(core)).Info("plain")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestInit(t *testing.T) {
	prev := Get()
	defer Set(prev)

	require.NoError(t, Init(Config{Level: "debug", Encoding: "console"}))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Init(Config{Level: "loud"}))
}

func TestSet(t *testing.T) {
	prev := Get()
	defer Set(prev)

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Get().Warn("dry run", zap.String("sql", "SELECT 1"))
	Get().With(zap.String("k", "v")).Debug("child")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "SELECT 1", logs.All()[0].ContextMap()["sql"])
}

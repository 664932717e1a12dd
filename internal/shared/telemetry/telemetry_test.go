package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFacadeWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	Info("request.complete", map[string]any{"status": 200, "path": "/api/health"})
	Error("http.error", map[string]any{"err": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request.complete", entries[0].Message)
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["err"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("chatty"))
}

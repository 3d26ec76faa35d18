package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/trainerauth/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, ParseLevel(input), input)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestZapAuditLogger_LogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	audit := NewAuditLogger(zap.New(core))

	audit.LogEvent(context.Background(), domain.NewAuditEvent(domain.TrainerLoginEvent, 7).
		WithSession("sess-1").
		WithClient(domain.ClientMeta{IP: "10.0.0.1"}))
	audit.LogEvent(context.Background(), domain.NewAuditEvent(domain.TrainerLoginFailureEvent, 7).
		WithError(domain.ErrInvalidCredentials))
	audit.LogEvent(context.Background(), nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "audit", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "TRAINER_LOGIN", fields["event_type"])
	assert.Equal(t, uint64(7), fields["trainer_id"])
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.Equal(t, "10.0.0.1", fields["ip"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "invalid credentials", entries[1].ContextMap()["error"])
}

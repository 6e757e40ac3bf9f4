package diag

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedReporter(level zapcore.Level, rate RateCfg) (*Reporter, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewReporter(zap.New(core), rate), logs
}

func TestReporterSinkError(t *testing.T) {
	r, logs := newObservedReporter(zapcore.InfoLevel, RateCfg{Window: time.Minute, Burst: 5})

	r.SinkError("app.log", "write", errors.New("disk full"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "app.log", fields["writer"])
	assert.Equal(t, "write", fields["op"])
	assert.Equal(t, "disk full", fields["error"])
}

func TestReporterRateLimitsPerWriter(t *testing.T) {
	r, logs := newObservedReporter(zapcore.InfoLevel, RateCfg{Window: time.Hour, Burst: 2})

	for i := 0; i < 5; i++ {
		r.Dropped("Net")
	}
	r.Dropped("Audio")

	assert.Equal(t, 2, logs.FilterField(zap.String("category", "Net")).Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("category", "Audio")).Len())
}

func TestReporterCountsSuppressed(t *testing.T) {
	r, logs := newObservedReporter(zapcore.InfoLevel, RateCfg{Window: 50 * time.Millisecond, Burst: 1})

	r.Grew("app.log", 100)
	r.Grew("app.log", 200)
	r.Grew("app.log", 300)

	require.Eventually(t, func() bool {
		r.Grew("app.log", 400)
		return logs.Len() >= 2
	}, time.Second, 10*time.Millisecond)

	last := logs.All()[1].ContextMap()
	assert.GreaterOrEqual(t, last["suppressed"], int64(2))
}

func TestReporterDebugEventsRespectLevel(t *testing.T) {
	r, logs := newObservedReporter(zapcore.InfoLevel, RateCfg{})
	r.Drained("app.log", 10)
	r.Flushed("app.log", time.Millisecond)
	r.Allocated("log_line")
	assert.Zero(t, logs.Len())

	r, logs = newObservedReporter(zapcore.DebugLevel, RateCfg{})
	r.Drained("app.log", 10)
	r.Flushed("app.log", time.Millisecond)
	r.Allocated("log_line")
	assert.Equal(t, 3, logs.Len())
}

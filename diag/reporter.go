package diag

import (
	"sync"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/linchenxuan/logmgr/log"
)

// eventKey is the rate limiting category of a report.
type eventKey struct {
	event  string
	writer string
}

// Reporter implements log.Observer by writing rate-limited zap entries.
// Throughput notifications (drains, flushes, pool misses) are only logged at debug level.
type Reporter struct {
	logger  *zap.Logger
	limiter *catrate.Limiter

	mu         sync.Mutex
	suppressed map[eventKey]int
}

var _ log.Observer = (*Reporter)(nil)

// NewReporter creates a reporter. A nil logger is replaced by zap.NewNop.
func NewReporter(logger *zap.Logger, rate RateCfg) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rate.Window <= 0 || rate.Burst <= 0 {
		rate = RateCfg{Window: time.Minute, Burst: 10}
	}
	return &Reporter{
		logger:     logger,
		limiter:    catrate.NewLimiter(map[time.Duration]int{rate.Window: rate.Burst}),
		suppressed: make(map[eventKey]int),
	}
}

// allow registers one event for key. When allowed it returns how many reports of the
// same key were dropped since the last one that went through.
func (r *Reporter) allow(key eventKey) (int, bool) {
	_, ok := r.limiter.Allow(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		r.suppressed[key]++
		return 0, false
	}
	n := r.suppressed[key]
	delete(r.suppressed, key)
	return n, true
}

func (r *Reporter) report(level zapcore.Level, key eventKey, msg string, fields ...zap.Field) {
	if !r.logger.Core().Enabled(level) {
		return
	}
	suppressed, ok := r.allow(key)
	if !ok {
		return
	}
	if suppressed > 0 {
		fields = append(fields, zap.Int("suppressed", suppressed))
	}
	if ce := r.logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (r *Reporter) SinkError(writer, op string, err error) {
	r.report(zapcore.ErrorLevel, eventKey{"sink_error_" + op, writer}, "log sink operation failed",
		zap.String("writer", writer), zap.String("op", op), zap.Error(err))
}

func (r *Reporter) Dropped(category string) {
	r.report(zapcore.WarnLevel, eventKey{"dropped", category}, "log record dropped, no writer for category",
		zap.String("category", category))
}

func (r *Reporter) Grew(writer string, capacity int) {
	r.report(zapcore.InfoLevel, eventKey{"grew", writer}, "ring buffer grown",
		zap.String("writer", writer), zap.Int("capacity", capacity))
}

func (r *Reporter) Drained(writer string, n int) {
	r.report(zapcore.DebugLevel, eventKey{"drained", writer}, "ring buffer drained",
		zap.String("writer", writer), zap.Int("bytes", n))
}

func (r *Reporter) Flushed(writer string, d time.Duration) {
	r.report(zapcore.DebugLevel, eventKey{"flushed", writer}, "sink flushed",
		zap.String("writer", writer), zap.Duration("duration", d))
}

func (r *Reporter) Allocated(pool string) {
	r.report(zapcore.DebugLevel, eventKey{"allocated", pool}, "buffer pool miss",
		zap.String("pool", pool))
}

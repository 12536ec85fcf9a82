package logger

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle admits at most one notice per interval.
//
// Notices that arrive while the window is closed are counted and the
// count is handed to the next admitted notice, so a sustained outage
// produces one line every interval instead of a log storm.
type Throttle struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	suppressed int
	now        func() time.Time
}

// NewThrottle creates a throttle with the given window. A nil clock
// defaults to time.Now.
func NewThrottle(every time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(every), 1),
		now:     now,
	}
}

// Allow reports whether a notice may be emitted now. When it may, the
// number of notices suppressed since the previous admitted one is
// returned and the counter is cleared.
func (t *Throttle) Allow() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.limiter.AllowN(t.now(), 1) {
		t.suppressed++
		return false, 0
	}

	suppressed := t.suppressed
	t.suppressed = 0
	return true, suppressed
}

// throttledLogger rate-limits Warn and Error. Debug and Info pass through.
type throttledLogger struct {
	Logger
	throttle *Throttle
}

// NewThrottled wraps log so that warnings and errors are emitted at most
// once per interval. Each emitted line carries a "suppressed" field when
// earlier lines were dropped.
func NewThrottled(log Logger, every time.Duration) Logger {
	return &throttledLogger{
		Logger:   log,
		throttle: NewThrottle(every, nil),
	}
}

// Warn implements Logger.Warn.
func (l *throttledLogger) Warn(msg string, keysAndValues ...interface{}) {
	if ok, suppressed := l.throttle.Allow(); ok {
		l.Logger.Warn(msg, withSuppressed(keysAndValues, suppressed)...)
	}
}

// Error implements Logger.Error.
func (l *throttledLogger) Error(msg string, keysAndValues ...interface{}) {
	if ok, suppressed := l.throttle.Allow(); ok {
		l.Logger.Error(msg, withSuppressed(keysAndValues, suppressed)...)
	}
}

// With implements Logger.With. The derived logger shares the throttle.
func (l *throttledLogger) With(keysAndValues ...interface{}) Logger {
	return &throttledLogger{
		Logger:   l.Logger.With(keysAndValues...),
		throttle: l.throttle,
	}
}

func withSuppressed(kv []interface{}, suppressed int) []interface{} {
	if suppressed == 0 {
		return kv
	}
	return append(kv, "suppressed", suppressed)
}

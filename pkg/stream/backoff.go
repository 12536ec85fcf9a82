package stream

import (
	"math"
	"time"
)

// Default reconnect schedule.
const (
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
	DefaultFactor       = 1.5
)

// Backoff is an exponential reconnect schedule:
// Delay(n) = min(Max, Initial * Factor^n).
//
// The zero value uses the defaults.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64

	attempt int
}

// DefaultBackoff returns the 100ms x1.5 schedule capped at 5s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: DefaultInitialDelay,
		Max:     DefaultMaxDelay,
		Factor:  DefaultFactor,
	}
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = DefaultInitialDelay
	}
	if b.Max <= 0 {
		b.Max = DefaultMaxDelay
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Factor < 1 {
		b.Factor = DefaultFactor
	}
	return b
}

// Delay returns the delay before reconnect attempt n, counting from 0.
func (b Backoff) Delay(n int) time.Duration {
	b = b.withDefaults()
	if n < 0 {
		n = 0
	}
	d := float64(b.Initial) * math.Pow(b.Factor, float64(n))
	if math.IsInf(d, 0) || d >= float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

// Next returns the current delay and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.Delay(b.attempt)
	if d < b.withDefaults().Max {
		b.attempt++
	}
	return d
}

// Reset returns the schedule to its initial delay.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of delays taken since the last Reset,
// capped once the maximum is reached.
func (b *Backoff) Attempt() int {
	return b.attempt
}

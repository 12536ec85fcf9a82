package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/0xmhha/agent-hud/pkg/event"
	"github.com/0xmhha/agent-hud/pkg/logger"
)

// Reader reads lines from a Source, reconnecting on failure.
//
// Thread-safety: Run must be called from one goroutine at a time. State
// and Stats may be called concurrently.
type Reader struct {
	source   Source
	config   Config
	logger   logger.Logger
	throttle *logger.Throttle

	mu    sync.RWMutex
	state State
	stats Stats
}

// New creates a reader for src.
func New(src Source, cfg Config, log logger.Logger) *Reader {
	cfg.Backoff = cfg.Backoff.withDefaults()
	if cfg.ErrorThrottle == 0 {
		cfg.ErrorThrottle = 5 * time.Second
	}
	if cfg.MaxLineLength == 0 {
		cfg.MaxLineLength = event.MaxLineLength
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 32 * 1024
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Noop()
	}

	log = log.With("source", src.Name())
	log.Debug("stream reader created",
		"initial_delay", cfg.Backoff.Initial,
		"max_delay", cfg.Backoff.Max,
		"factor", cfg.Backoff.Factor)

	return &Reader{
		source:   src,
		config:   cfg,
		logger:   log,
		throttle: logger.NewThrottle(cfg.ErrorThrottle, cfg.Now),
		state:    StateConnecting,
	}
}

// State returns the current connection state.
func (r *Reader) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Stats returns a copy of the counters.
func (r *Reader) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Run reads until ctx is cancelled, calling handle with every complete
// line (without its newline). The slice passed to handle is owned by
// the callee. Run only returns ctx.Err().
func (r *Reader) Run(ctx context.Context, handle func(line []byte)) error {
	backoff := r.config.Backoff

	for {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}

		r.setState(StateConnecting)
		rc, err := r.source.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			r.failure("stream connect failed", err)
		} else {
			backoff.Reset()
			r.mu.Lock()
			r.stats.Connects++
			r.mu.Unlock()
			r.setState(StateConnected)
			r.logger.Debug("stream connected")

			err = r.consume(ctx, rc, handle)
			rc.Close()

			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			r.failure("stream disconnected", err)
		}

		r.setState(StateBackoff)
		delay := backoff.Next()
		r.logger.Debug("reconnecting", "delay", delay, "attempt", backoff.Attempt())
		if err := r.config.Sleep(ctx, delay); err != nil {
			return r.cancelled(ctx)
		}
	}
}

// consume splits rc into lines until it fails.
func (r *Reader) consume(ctx context.Context, rc io.ReadCloser, handle func([]byte)) error {
	// Unblock a pending Read when ctx is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			rc.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, r.config.ChunkSize)
	var partial []byte
	discarding := false
	// pending counts the bytes read since the last newline, including
	// those of a line being discarded.
	var pending int64

	for {
		n, err := rc.Read(buf)
		chunk := buf[:n]

		for len(chunk) > 0 {
			i := bytes.IndexByte(chunk, '\n')
			if i < 0 {
				pending += int64(len(chunk))
				if discarding {
					break
				}
				partial = append(partial, chunk...)
				if len(partial) > r.config.MaxLineLength {
					r.oversized(len(partial))
					partial = nil
					discarding = true
				}
				break
			}

			segment := chunk[:i]
			chunk = chunk[i+1:]
			pending = 0

			if discarding {
				discarding = false
				continue
			}

			var line []byte
			if len(partial) > 0 {
				line = append(partial, segment...)
				partial = nil
			} else {
				line = append([]byte(nil), segment...)
			}
			line = bytes.TrimSuffix(line, []byte("\r"))

			if len(line) > r.config.MaxLineLength {
				r.oversized(len(line))
				continue
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			r.mu.Lock()
			r.stats.Lines++
			r.mu.Unlock()
			handle(line)
		}

		if err != nil {
			// Resume from the start of the incomplete line so it is
			// read again in full after reconnecting.
			if pending > 0 {
				if rw, ok := r.source.(Rewinder); ok {
					rw.Rewind(pending)
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// failure records a failed connection and emits a throttled notice.
func (r *Reader) failure(msg string, err error) {
	r.mu.Lock()
	r.stats.Failures++
	r.mu.Unlock()

	r.notice(msg, "error", errString(err))
}

func (r *Reader) oversized(size int) {
	r.mu.Lock()
	r.stats.Oversized++
	r.mu.Unlock()

	r.notice("skipping oversized line", "size", size, "limit", r.config.MaxLineLength)
}

// notice logs a warning at most once per ErrorThrottle window. The
// number of suppressed notices rides along with the next one.
func (r *Reader) notice(msg string, keysAndValues ...interface{}) {
	ok, suppressed := r.throttle.Allow()
	if !ok {
		return
	}
	if suppressed > 0 {
		keysAndValues = append(keysAndValues, "suppressed", suppressed)
	}
	r.logger.Warn(msg, keysAndValues...)
}

func (r *Reader) setState(s State) {
	r.mu.Lock()
	changed := r.state != s
	r.state = s
	r.mu.Unlock()

	if changed && r.config.OnState != nil {
		r.config.OnState(s)
	}
}

func (r *Reader) cancelled(ctx context.Context) error {
	r.setState(StateCancelled)
	r.logger.Debug("stream reader stopped")
	return ctx.Err()
}

func errString(err error) string {
	if err == nil {
		return "end of stream"
	}
	return err.Error()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

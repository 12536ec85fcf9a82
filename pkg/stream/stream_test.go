package stream

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/agent-hud/pkg/logger"
)

// conn scripts one connection of a fakeSource.
type conn struct {
	openErr error
	data    string
	err     error // returned after data; nil means io.EOF
}

type fakeSource struct {
	mu     sync.Mutex
	conns  []conn
	opened int
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened >= len(s.conns) {
		s.opened++
		return nil, errors.New("no more connections")
	}
	c := s.conns[s.opened]
	s.opened++
	if c.openErr != nil {
		return nil, c.openErr
	}
	return &scripted{data: []byte(c.data), err: c.err}, nil
}

// scripted returns its data in one Read, then err.
type scripted struct {
	data []byte
	err  error
}

func (r *scripted) Read(p []byte) (int, error) {
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return 0, io.EOF
}

func (r *scripted) Close() error { return nil }

// sleeper records requested delays and cancels after limit calls.
type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	limit  int
	cancel context.CancelFunc
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	n := len(s.delays)
	s.mu.Unlock()

	if n >= s.limit {
		s.cancel()
		return ctx.Err()
	}
	return ctx.Err()
}

func (s *sleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// recordLogger captures warnings.
type recordLogger struct {
	mu    sync.Mutex
	warns []map[string]interface{}
}

func (l *recordLogger) Debug(string, ...interface{}) {}
func (l *recordLogger) Info(string, ...interface{})  {}
func (l *recordLogger) Error(msg string, kv ...interface{}) {
	l.Warn(msg, kv...)
}
func (l *recordLogger) With(...interface{}) logger.Logger { return l }

func (l *recordLogger) Warn(msg string, kv ...interface{}) {
	fields := map[string]interface{}{"msg": msg}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1]
	}
	l.mu.Lock()
	l.warns = append(l.warns, fields)
	l.mu.Unlock()
}

func (l *recordLogger) Warns() []map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]map[string]interface{}(nil), l.warns...)
}

func collect(lines *[]string, mu *sync.Mutex) func([]byte) {
	return func(line []byte) {
		mu.Lock()
		*lines = append(*lines, string(line))
		mu.Unlock()
	}
}

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()

	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 150*time.Millisecond, b.Delay(1))
	assert.Equal(t, 225*time.Millisecond, b.Delay(2))
	assert.Equal(t, 5*time.Second, b.Delay(10))
	assert.Equal(t, 5*time.Second, b.Delay(1000))
	assert.Equal(t, 100*time.Millisecond, b.Delay(-1))

	for n := 0; n < 30; n++ {
		assert.LessOrEqual(t, b.Delay(n), b.Delay(n+1), "non-decreasing at %d", n)
		assert.LessOrEqual(t, b.Delay(n), 5*time.Second)
	}
}

func TestBackoffNextAndReset(t *testing.T) {
	var b Backoff

	assert.Equal(t, 100*time.Millisecond, b.Next())
	assert.Equal(t, 150*time.Millisecond, b.Next())
	assert.Equal(t, 225*time.Millisecond, b.Next())

	for i := 0; i < 20; i++ {
		b.Next()
	}
	assert.Equal(t, 5*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())

	b.Reset()
	assert.Zero(t, b.Attempt())
	assert.Equal(t, 100*time.Millisecond, b.Next())
}

func TestBackoffCustom(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 4 * time.Second, Factor: 2}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
}

func TestRunDeliversCompleteLines(t *testing.T) {
	src := &fakeSource{conns: []conn{
		{data: "a\r\nb\n\n   \nc-partial"},
		{data: "d\n"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &sleeper{limit: 2, cancel: cancel}

	r := New(src, Config{Sleep: s.Sleep, ChunkSize: 3}, logger.Noop())

	var mu sync.Mutex
	var lines []string
	err := r.Run(ctx, collect(&lines, &mu))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b", "d"}, lines)
	assert.Equal(t, StateCancelled, r.State())

	stats := r.Stats()
	assert.Equal(t, 2, stats.Connects)
	assert.Equal(t, 3, stats.Lines)
}

func TestRunBackoffSchedule(t *testing.T) {
	boom := errors.New("connection refused")
	src := &fakeSource{conns: []conn{
		{openErr: boom},
		{openErr: boom},
		{openErr: boom},
		{data: "x\n"},
		{openErr: boom},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &sleeper{limit: 6, cancel: cancel}

	var states []State
	r := New(src, Config{Sleep: s.Sleep, OnState: func(st State) { states = append(states, st) }}, logger.Noop())

	err := r.Run(ctx, func([]byte) {})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		150 * time.Millisecond,
		225 * time.Millisecond,
		100 * time.Millisecond, // reset by the successful connect
		150 * time.Millisecond,
		225 * time.Millisecond,
	}, s.Delays())

	assert.Contains(t, states, StateConnected)
	assert.Contains(t, states, StateBackoff)
	assert.Equal(t, StateCancelled, states[len(states)-1])
	assert.Equal(t, 1, r.Stats().Connects)
	assert.Equal(t, 6, r.Stats().Failures)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{conns: []conn{{data: "a\n"}}}
	r := New(src, Config{}, nil)

	err := r.Run(ctx, func([]byte) { t.Error("unexpected line") })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, r.State())
	assert.Zero(t, src.opened)
}

func TestRunSkipsOversizedLines(t *testing.T) {
	src := &fakeSource{conns: []conn{
		{data: "short\n" + strings.Repeat("x", 25) + "\nok\n" + strings.Repeat("y", 11) + "\nend\n"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &sleeper{limit: 1, cancel: cancel}

	r := New(src, Config{Sleep: s.Sleep, MaxLineLength: 10, ChunkSize: 4}, logger.Noop())

	var mu sync.Mutex
	var lines []string
	_ = r.Run(ctx, collect(&lines, &mu))

	assert.Equal(t, []string{"short", "ok", "end"}, lines)
	assert.Equal(t, 2, r.Stats().Oversized)
}

func TestRunLineAtLimitIsDelivered(t *testing.T) {
	exact := strings.Repeat("z", 10)
	src := &fakeSource{conns: []conn{{data: exact + "\n"}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &sleeper{limit: 1, cancel: cancel}

	r := New(src, Config{Sleep: s.Sleep, MaxLineLength: 10, ChunkSize: 3}, logger.Noop())

	var mu sync.Mutex
	var lines []string
	_ = r.Run(ctx, collect(&lines, &mu))

	assert.Equal(t, []string{exact}, lines)
	assert.Zero(t, r.Stats().Oversized)
}

func TestErrorNoticesAreThrottled(t *testing.T) {
	boom := errors.New("refused")
	src := &fakeSource{}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	sleepFn := func(ctx context.Context, d time.Duration) error {
		calls++
		if calls == 5 {
			clockMu.Lock()
			now = now.Add(6 * time.Second)
			clockMu.Unlock()
		}
		if calls == 6 {
			cancel()
		}
		return ctx.Err()
	}

	for i := 0; i < 10; i++ {
		src.conns = append(src.conns, conn{openErr: boom})
	}

	log := &recordLogger{}
	r := New(src, Config{Sleep: sleepFn, Now: clock}, log)
	_ = r.Run(ctx, func([]byte) {})

	warns := log.Warns()
	require.Len(t, warns, 2, "one notice per 5s window")
	assert.Equal(t, "stream connect failed", warns[0]["msg"])
	assert.NotContains(t, warns[0], "suppressed")
	assert.Equal(t, 4, warns[1]["suppressed"])
	assert.Equal(t, 6, r.Stats().Failures)
}

// rewindSource serves a shared buffer from its offset, cutting each
// connection after limit bytes.
type rewindSource struct {
	data   string
	offset int64
	limit  int
}

func (s *rewindSource) Name() string { return "rewind" }

func (s *rewindSource) Open(context.Context) (io.ReadCloser, error) {
	rest := s.data[s.offset:]
	if len(rest) > s.limit {
		rest = rest[:s.limit]
	}
	s.offset += int64(len(rest))
	return &scripted{data: []byte(rest), err: errors.New("connection reset")}, nil
}

func (s *rewindSource) Rewind(n int64) { s.offset -= n }

func TestRunRewindsIncompleteLine(t *testing.T) {
	src := &rewindSource{data: "abc\ndefgh\nij\n", limit: 6}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &sleeper{limit: 4, cancel: cancel}

	r := New(src, Config{Sleep: s.Sleep, ChunkSize: 2}, logger.Noop())

	var mu sync.Mutex
	var lines []string
	_ = r.Run(ctx, collect(&lines, &mu))

	assert.Equal(t, []string{"abc", "defgh", "ij"}, lines)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "backoff", StateBackoff.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "unknown", State(42).String())
}

func fastSleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, time.Millisecond)
}

func waitLines(t *testing.T, ch <-chan string, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-ch:
			assert.Equal(t, w, got)
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for line %q", w)
		}
	}
}

func TestFileSourceFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0600))

	src := NewFileSource(path, FileConfig{PollInterval: 10 * time.Millisecond, DisableWatch: true}, nil)
	r := New(src, Config{Sleep: fastSleep}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(line []byte) { lines <- string(line) })
	}()

	waitLines(t, lines, "a")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("b\nc")
	require.NoError(t, err)
	waitLines(t, lines, "b")

	_, err = f.WriteString("d\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	waitLines(t, lines, "cd")

	// Truncate and start over.
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0600))
	waitLines(t, lines, "x")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileSourceWithWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	// A long poll interval means only the watcher can wake the reader
	// in time.
	src := NewFileSource(path, FileConfig{PollInterval: time.Minute}, logger.Noop())
	r := New(src, Config{Sleep: fastSleep}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	go func() { _ = r.Run(ctx, func(line []byte) { lines <- string(line) }) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0600))
	waitLines(t, lines, "hello")
}

func TestFileSourceReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old-1\nold-2\n"), 0600))

	src := NewFileSource(path, FileConfig{PollInterval: 10 * time.Millisecond, DisableWatch: true}, nil)
	r := New(src, Config{Sleep: fastSleep}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	go func() { _ = r.Run(ctx, func(line []byte) { lines <- string(line) }) }()
	waitLines(t, lines, "old-1", "old-2")

	// Replace atomically with a longer file; the new one is read from 0.
	tmp := filepath.Join(dir, "next.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("new-1\nnew-2\nnew-3\n"), 0600))
	require.NoError(t, os.Rename(tmp, path))

	waitLines(t, lines, "new-1", "new-2", "new-3")
}

func TestFileSourceMissing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.jsonl"), FileConfig{}, nil)

	_, err := src.Open(context.Background())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileSourceRewind(t *testing.T) {
	src := NewFileSource("/tmp/unused", FileConfig{}, nil)
	src.advance(10)
	src.Rewind(4)
	assert.Equal(t, int64(6), src.Offset())
	src.Rewind(100)
	assert.Zero(t, src.Offset())
	assert.Equal(t, "/tmp/unused", src.Name())
}

func TestSocketSource(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for i := 0; i < 2; i++ {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = c.Write([]byte("conn\npartial"))
			c.Close()
		}
	}()

	src := NewSocketSource("tcp", ln.Addr().String())
	assert.Equal(t, "tcp://"+ln.Addr().String(), src.Name())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	go func() { _ = New(src, Config{Sleep: fastSleep}, nil).Run(ctx, func(line []byte) { lines <- string(line) }) }()

	// Partial lines do not survive a reconnect on a socket.
	waitLines(t, lines, "conn", "conn")
}

func TestParseSocket(t *testing.T) {
	tests := []struct {
		in      string
		network string
		address string
	}{
		{"tcp://127.0.0.1:9000", "tcp", "127.0.0.1:9000"},
		{"unix:///tmp/hud.sock", "unix", "/tmp/hud.sock"},
		{"/tmp/hud.sock", "unix", "/tmp/hud.sock"},
	}

	for _, tt := range tests {
		network, address := ParseSocket(tt.in)
		assert.Equal(t, tt.network, network, tt.in)
		assert.Equal(t, tt.address, address, tt.in)
	}
}

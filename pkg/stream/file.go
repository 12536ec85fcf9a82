package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/0xmhha/agent-hud/pkg/logger"
	"github.com/0xmhha/agent-hud/pkg/watcher"
)

// FileConfig contains FileSource configuration.
type FileConfig struct {
	// PollInterval bounds how long the follower waits at end of file
	// when no change notification arrives.
	//
	// Default: 500ms.
	PollInterval time.Duration

	// DisableWatch turns off fsnotify and relies on polling only.
	DisableWatch bool

	// DebounceInterval is passed to the file watcher.
	//
	// Default: 10ms.
	DebounceInterval time.Duration
}

// FileSource follows an append-only file. It keeps its byte offset
// across reconnects and starts over from the beginning when the file
// shrinks or is replaced.
type FileSource struct {
	path   string
	config FileConfig
	logger logger.Logger

	mu     sync.Mutex
	offset int64
	ident  os.FileInfo
}

// NewFileSource creates a source following path. A leading ~ is expanded.
func NewFileSource(path string, cfg FileConfig, log logger.Logger) *FileSource {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 10 * time.Millisecond
	}
	if log == nil {
		log = logger.Noop()
	}
	return &FileSource{
		path:   logger.ExpandHome(path),
		config: cfg,
		logger: log,
	}
}

// Name implements Source.Name.
func (s *FileSource) Name() string {
	return s.path
}

// Offset returns the position the next Open resumes from.
func (s *FileSource) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Rewind implements Rewinder.
func (s *FileSource) Rewind(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset -= n
	if s.offset < 0 {
		s.offset = 0
	}
}

// Open implements Source.Open.
func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.ident != nil && !os.SameFile(s.ident, info) {
		s.logger.Info("file replaced, reading from start", "path", s.path)
		s.offset = 0
	} else if info.Size() < s.offset {
		s.logger.Info("file truncated, reading from start",
			"path", s.path, "old_offset", s.offset, "size", info.Size())
		s.offset = 0
	}
	s.ident = info
	offset := s.offset
	s.mu.Unlock()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek %s: %w", s.path, err)
	}

	fr := &follower{
		src:  s,
		file: f,
		info: info,
		done: make(chan struct{}),
		ctx:  ctx,
		poll: s.config.PollInterval,
	}

	if !s.config.DisableWatch {
		w, err := watcher.New(watcher.Config{DebounceInterval: s.config.DebounceInterval}, s.logger)
		if err == nil {
			err = w.Start(ctx, []string{s.path})
		}
		if err != nil {
			s.logger.Debug("file watch unavailable, polling", "path", s.path, "error", err)
			if w != nil {
				w.Close()
			}
		} else {
			fr.watch = w
		}
	}

	return fr, nil
}

func (s *FileSource) advance(n int) {
	s.mu.Lock()
	s.offset += int64(n)
	s.mu.Unlock()
}

// follower reads a file and blocks at end of file until it grows.
type follower struct {
	src   *FileSource
	file  *os.File
	info  os.FileInfo
	watch watcher.Watcher
	ctx   context.Context
	poll  time.Duration

	// watchClosed is only touched by the reading goroutine.
	watchClosed bool

	done      chan struct{}
	closeOnce sync.Once
}

// Read implements io.Reader.
func (f *follower) Read(p []byte) (int, error) {
	for {
		select {
		case <-f.done:
			return 0, ErrStreamClosed
		default:
		}

		n, err := f.file.Read(p)
		if n > 0 {
			f.src.advance(n)
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		if err := f.checkIdentity(); err != nil {
			return 0, err
		}
		if err := f.wait(); err != nil {
			return 0, err
		}
	}
}

// checkIdentity reports whether the path still names the open file and
// the file has not shrunk below the read position.
func (f *follower) checkIdentity() error {
	info, err := os.Stat(f.src.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSourceGone
		}
		return err
	}
	if !os.SameFile(f.info, info) {
		return ErrSourceGone
	}
	if info.Size() < f.src.Offset() {
		return ErrTruncated
	}
	return nil
}

// wait blocks until the file may have changed.
func (f *follower) wait() error {
	timer := time.NewTimer(f.poll)
	defer timer.Stop()

	var events <-chan watcher.Event
	if f.watch != nil && !f.watchClosed {
		events = f.watch.Events()
	}

	select {
	case <-f.ctx.Done():
		return f.ctx.Err()
	case <-f.done:
		return ErrStreamClosed
	case ev, ok := <-events:
		if !ok {
			f.watchClosed = true
			return nil
		}
		if ev.Op.Gone() {
			return ErrSourceGone
		}
		return nil
	case <-timer.C:
		return nil
	}
}

// Close implements io.Closer. It is safe to call more than once and
// unblocks a pending Read.
func (f *follower) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		if f.watch != nil {
			f.watch.Close()
		}
		err = f.file.Close()
	})
	return err
}

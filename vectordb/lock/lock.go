// Package lock provides a cross-process exclusive lock backed by a lock file,
// used to keep a single writer per embedding database.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock: held by another process")

var errWouldBlock = errors.New("lock: would block")

const defaultPollInterval = 50 * time.Millisecond

// FileLock is an acquired exclusive lock.
type FileLock struct {
	path string
	file *os.File
}

type options struct {
	blocking bool
	timeout  time.Duration
	poll     time.Duration
}

// Option configures Acquire.
type Option func(*options)

// WithBlocking waits for the lock instead of failing with ErrLocked.
// A timeout <= 0 waits until the context is done.
func WithBlocking(blocking bool, timeout time.Duration) Option {
	return func(o *options) {
		o.blocking = blocking
		o.timeout = timeout
	}
}

// WithPollInterval sets the retry interval used while waiting.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// Acquire takes an exclusive lock on path, creating the file when missing.
func Acquire(ctx context.Context, path string, opts ...Option) (*FileLock, error) {
	o := &options{poll: defaultPollInterval}
	for _, opt := range opts {
		opt(o)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("lock: create %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", path, err)
	}
	if err := acquire(ctx, f, o); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileLock{path: path, file: f}, nil
}

func acquire(ctx context.Context, f *os.File, o *options) error {
	if o.blocking && o.timeout <= 0 && ctx.Done() == nil {
		if err := flock(f, true); err != nil {
			return fmt.Errorf("lock: %s: %w", f.Name(), err)
		}
		return nil
	}
	var deadline <-chan time.Time
	if o.blocking && o.timeout > 0 {
		timer := time.NewTimer(o.timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		err := flock(f, false)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errWouldBlock) {
			return fmt.Errorf("lock: %s: %w", f.Name(), err)
		}
		if !o.blocking {
			return fmt.Errorf("%w: %s", ErrLocked, f.Name())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s: timed out after %s", ErrLocked, f.Name(), o.timeout)
		case <-time.After(o.poll):
		}
	}
}

// Release unlocks and closes the lock file. The file itself is left in place.
func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := funlock(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

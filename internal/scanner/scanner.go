// Package scanner drives continuous QR capture from a frame source. It owns
// the capture lifecycle: frames are decoded strictly one at a time on a fixed
// cadence, the first successful decode stops capture before the result is
// delivered, and the source is released exactly once no matter which of the
// three triggers fires first (explicit stop, successful decode, context
// teardown).
package scanner

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/conferly/api/internal/payload"
	"github.com/conferly/api/internal/qr"
)

// FrameSource is an exclusive video input. Frame blocks until the next frame
// is available or ctx is done. Close releases the underlying device and must
// be safe to call once.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// State is the capture lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

var ErrNotIdle = errors.New("scanner already running")

// Scanner decodes frames from a source until one yields a symbol.
type Scanner struct {
	interval time.Duration
	logger   *slog.Logger
	onResult func(payload.Decoded)

	mu    sync.Mutex
	state State
	src   FrameSource
	stop  chan struct{}
	done  chan struct{}
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithInterval sets the decode cadence. Default 250ms.
func WithInterval(d time.Duration) Option {
	return func(s *Scanner) { s.interval = d }
}

func New(logger *slog.Logger, onResult func(payload.Decoded), opts ...Option) *Scanner {
	s := &Scanner{
		interval: 250 * time.Millisecond,
		logger:   logger,
		onResult: onResult,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires src and begins the decode loop. It returns ErrNotIdle if a
// capture session is already running; at most one session per Scanner.
func (s *Scanner) Start(ctx context.Context, src FrameSource) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.state = StateStarting
	s.src = src
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.state = StateActive
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

// Stop ends the capture session and releases the source. Safe to call at any
// time, from any goroutine, multiple times. It returns once teardown has
// completed.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return
	}
	if s.state == StateActive {
		s.state = StateStopping
		close(s.stop)
	}
	done := s.done
	s.mu.Unlock()

	<-done
}

// release is the single teardown path. Every trigger (Stop, first decode,
// context cancellation) converges here, and the nil-ed done channel makes
// the second and later calls no-ops: the source is closed exactly once per
// session.
func (s *Scanner) release() {
	s.mu.Lock()
	done := s.done
	if done == nil {
		s.mu.Unlock()
		return
	}
	src := s.src
	s.src = nil
	s.done = nil
	s.state = StateIdle
	s.mu.Unlock()

	if src != nil {
		if err := src.Close(); err != nil {
			s.logger.Warn("closing frame source", "error", err)
		}
	}
	close(done)
}

func (s *Scanner) loop(ctx context.Context) {
	defer s.release()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		src := s.src
		s.mu.Unlock()
		if src == nil {
			return
		}

		frame, err := src.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("reading frame", "error", err)
			continue
		}

		text, err := qr.DecodeImage(frame)
		if err != nil {
			// Most frames contain no symbol. Expected, never surfaced.
			if !errors.Is(err, qr.ErrNoSymbol) {
				s.logger.Debug("frame decode failed", "error", err)
			}
			continue
		}

		// Release the device before the result is delivered, so capture is
		// fully stopped when the downstream validation fires and at most one
		// validation fires per session.
		s.release()
		s.onResult(payload.Parse(text))
		return
	}
}

package camera

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by Run on a loop that has already run.
var ErrAlreadyStarted = errors.New("camera loop already started")

// Loop samples a decoder and submits every decoded code. Each cycle waits
// for the previous decode to finish. The running flag is checked after every
// decode, so nothing is submitted once Stop has been called.
type Loop struct {
	decoder  Decoder
	submit   func(code string)
	interval time.Duration
	logger   *zap.Logger

	running atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLoop returns a stopped loop. interval is the pause between cycles.
func NewLoop(decoder Decoder, interval time.Duration, submit func(code string), logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		decoder:  decoder,
		submit:   submit,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Running reports whether the loop is sampling.
func (l *Loop) Running() bool { return l.running.Load() }

// Run samples until ctx is done, Stop is called or the decoder fails for
// good. The decoder is closed before Run returns. Terminal decoder errors
// are returned; stopping is not an error.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running.Store(true)
	l.mu.Unlock()

	defer func() {
		l.running.Store(false)
		cancel()
		if err := l.decoder.Close(); err != nil {
			l.logger.Debug("camera decoder close failed", zap.Error(err))
		}
		close(l.done)
	}()

	l.logger.Info("camera loop started", zap.Duration("interval", l.interval))

	for l.running.Load() {
		code, err := l.decoder.Decode(ctx)
		if !l.running.Load() || ctx.Err() != nil {
			return nil
		}

		switch {
		case IsTerminal(err):
			l.logger.Warn("camera path disabled", zap.Error(err))
			return err
		case err != nil:
			l.logger.Debug("frame decode failed", zap.Error(err))
		case code != "":
			l.submit(code)
		}

		if !l.wait(ctx) {
			return nil
		}
	}
	return nil
}

func (l *Loop) wait(ctx context.Context) bool {
	if l.interval <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(l.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Stop halts sampling and waits until the decoder has been released. It is
// safe to call more than once, and before Run.
func (l *Loop) Stop() {
	l.running.Store(false)

	l.mu.Lock()
	if !l.started {
		// Run will refuse to start.
		l.started = true
		l.mu.Unlock()
		_ = l.decoder.Close()
		close(l.done)
		return
	}
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-l.done
}

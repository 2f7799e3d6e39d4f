// Package scanbuffer segments a stream of single-key events into scanned codes.
//
// Barcode scanners in keyboard-wedge mode type a whole code as a burst of key
// events, much faster than a person, usually without a terminator. A Buffer
// accumulates characters while they arrive within the gap threshold and
// emits the accumulated code when either the terminator key arrives or no
// character has arrived for the commit delay.
package scanbuffer

import (
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// Clock abstracts time so tests can drive the inactivity timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the buffer needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Settings configures burst detection.
type Settings struct {
	// GapThreshold is the longest pause allowed between two characters of
	// the same burst. A longer pause discards the partial buffer.
	GapThreshold time.Duration

	// CommitDelay is the inactivity period after which the buffer is emitted.
	CommitDelay time.Duration

	// Terminator is the key name that emits the buffer immediately.
	Terminator string
}

// Key is one atomic input event: a printable character such as "a", or a
// key name such as "enter" or "shift".
type Key struct {
	Name string
	At   time.Time
}

// Buffer is safe for concurrent use. Emit is called without the internal
// lock held, from the caller's goroutine for terminators and from a timer
// goroutine for inactivity commits.
type Buffer struct {
	settings Settings
	clock    Clock
	emit     func(code string)

	mu       sync.Mutex
	buf      []rune
	last     time.Time
	timer    Timer
	gen      uint64
	suppress bool
	closed   bool
}

// Option customizes a Buffer.
type Option func(*Buffer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(b *Buffer) {
		if c != nil {
			b.clock = c
		}
	}
}

// New returns a buffer that calls emit for every completed code.
func New(settings Settings, emit func(code string), opts ...Option) *Buffer {
	b := &Buffer{
		settings: settings,
		clock:    RealClock,
		emit:     emit,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetTextEntryFocus toggles suppression. While a text-entry control holds
// focus every event is ignored and the buffer is left untouched.
func (b *Buffer) SetTextEntryFocus(focused bool) {
	b.mu.Lock()
	b.suppress = focused
	b.mu.Unlock()
}

// Feed processes one key event. Events with a zero timestamp are stamped
// with the clock.
func (b *Buffer) Feed(k Key) {
	if k.At.IsZero() {
		k.At = b.clock.Now()
	}

	b.mu.Lock()
	if b.closed || b.suppress {
		b.mu.Unlock()
		return
	}

	if b.settings.Terminator != "" && k.Name == b.settings.Terminator {
		code := b.takeLocked()
		b.mu.Unlock()
		if code != "" {
			b.emit(code)
		}
		return
	}

	r, ok := printable(k.Name)
	if !ok {
		// Modifiers and named keys neither append nor count as activity.
		b.mu.Unlock()
		return
	}

	if !b.last.IsZero() && k.At.Sub(b.last) > b.settings.GapThreshold {
		b.buf = b.buf[:0]
	}
	b.buf = append(b.buf, r)
	b.last = k.At
	b.armLocked()
	b.mu.Unlock()
}

// Pending returns the characters accumulated so far.
func (b *Buffer) Pending() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// Close cancels any pending commit and discards the buffer. Later events
// are ignored.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stopLocked()
	b.buf = nil
}

// armLocked (re)starts the inactivity timer.
func (b *Buffer) armLocked() {
	b.stopLocked()
	gen := b.gen
	b.timer = b.clock.AfterFunc(b.settings.CommitDelay, func() { b.commit(gen) })
}

// stopLocked cancels the timer and invalidates callbacks already in flight.
func (b *Buffer) stopLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
}

// takeLocked empties the buffer and returns its contents.
func (b *Buffer) takeLocked() string {
	b.stopLocked()
	code := string(b.buf)
	b.buf = b.buf[:0]
	return code
}

func (b *Buffer) commit(gen uint64) {
	b.mu.Lock()
	if b.closed || gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	code := string(b.buf)
	b.buf = b.buf[:0]
	b.gen++
	b.mu.Unlock()

	if code != "" {
		b.emit(code)
	}
}

// printable reports whether name is a single printable character.
func printable(name string) (rune, bool) {
	if utf8.RuneCountInString(name) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || !unicode.IsPrint(r) {
		return 0, false
	}
	return r, true
}

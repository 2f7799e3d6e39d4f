package scanbuffer

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeClock fires timers only when the test advances it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu    sync.Mutex
	codes []string
}

func (r *recorder) emit(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.codes...)
}

func newTestBuffer(gap, delay time.Duration) (*Buffer, *fakeClock, *recorder) {
	clock := newFakeClock()
	rec := &recorder{}
	b := New(Settings{GapThreshold: gap, CommitDelay: delay, Terminator: "enter"}, rec.emit, WithClock(clock))
	return b, clock, rec
}

func typeKeys(b *Buffer, clock *fakeClock, step time.Duration, keys ...string) {
	for i, k := range keys {
		if i > 0 {
			clock.Advance(step)
		}
		b.Feed(Key{Name: k, At: clock.Now()})
	}
}

func TestBurstCommitsAfterInactivity(t *testing.T) {
	b, clock, rec := newTestBuffer(100*time.Millisecond, 120*time.Millisecond)

	typeKeys(b, clock, 10*time.Millisecond, "A", "1", "2")
	assert.Empty(t, rec.got())
	assert.Equal(t, "A12", b.Pending())

	clock.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"A12"}, rec.got())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"A12"}, rec.got())
	assert.Empty(t, b.Pending())
}

func TestTerminatorEmitsImmediately(t *testing.T) {
	b, clock, rec := newTestBuffer(100*time.Millisecond, 120*time.Millisecond)

	typeKeys(b, clock, 5*time.Millisecond, "X", "9", "enter")
	assert.Equal(t, []string{"X9"}, rec.got())

	// The pending inactivity commit was cancelled.
	clock.Advance(time.Second)
	assert.Equal(t, []string{"X9"}, rec.got())
}

func TestTerminatorOnEmptyBufferEmitsNothing(t *testing.T) {
	b, _, rec := newTestBuffer(100*time.Millisecond, 120*time.Millisecond)
	b.Feed(Key{Name: "enter"})
	assert.Empty(t, rec.got())
}

func TestGapBeyondThresholdStartsNewBurst(t *testing.T) {
	b, clock, rec := newTestBuffer(100*time.Millisecond, time.Second)

	b.Feed(Key{Name: "A", At: clock.Now()})
	clock.Advance(150 * time.Millisecond)
	b.Feed(Key{Name: "B", At: clock.Now()})
	assert.Equal(t, "B", b.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"B"}, rec.got())
}

func TestModifierKeysDoNotCountAsActivity(t *testing.T) {
	b, clock, rec := newTestBuffer(100*time.Millisecond, time.Second)

	b.Feed(Key{Name: "A", At: clock.Now()})
	clock.Advance(90 * time.Millisecond)
	b.Feed(Key{Name: "shift", At: clock.Now()})
	b.Feed(Key{Name: "", At: clock.Now()})
	clock.Advance(90 * time.Millisecond)
	b.Feed(Key{Name: "B", At: clock.Now()})

	assert.Equal(t, "B", b.Pending())
	clock.Advance(time.Second)
	assert.Equal(t, []string{"B"}, rec.got())
}

func TestTextEntryFocusSuppressesEvents(t *testing.T) {
	b, clock, rec := newTestBuffer(100*time.Millisecond, 120*time.Millisecond)

	b.Feed(Key{Name: "A", At: clock.Now()})
	b.SetTextEntryFocus(true)
	b.Feed(Key{Name: "B", At: clock.Now()})
	b.Feed(Key{Name: "enter", At: clock.Now()})
	assert.Equal(t, "A", b.Pending())

	b.SetTextEntryFocus(false)
	b.Feed(Key{Name: "C", At: clock.Now()})
	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"AC"}, rec.got())
}

func TestCloseDropsPendingCode(t *testing.T) {
	b, clock, rec := newTestBuffer(100*time.Millisecond, 120*time.Millisecond)

	b.Feed(Key{Name: "Q", At: clock.Now()})
	b.Close()
	clock.Advance(time.Second)
	b.Feed(Key{Name: "R", At: clock.Now()})

	assert.Empty(t, rec.got())
}

func TestRealClockCommitLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	codes := make(chan string, 1)
	b := New(Settings{GapThreshold: time.Second, CommitDelay: 20 * time.Millisecond, Terminator: "enter"},
		func(code string) { codes <- code })

	for _, k := range []string{"S", "K", "U"} {
		b.Feed(Key{Name: k})
	}

	select {
	case code := <-codes:
		require.Equal(t, "SKU", code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for commit")
	}
	b.Close()
}

package camera

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collector records submitted codes and signals each one.
type collector struct {
	mu    sync.Mutex
	codes []string
	seen  chan string
}

func newCollector() *collector {
	return &collector{seen: make(chan string, 16)}
}

func (c *collector) submit(code string) {
	c.mu.Lock()
	c.codes = append(c.codes, code)
	c.mu.Unlock()
	c.seen <- code
}

func (c *collector) Codes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.codes...)
}

func (c *collector) await(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for code %d", i+1)
		}
	}
}

// scriptedDecoder returns the scripted results in order, then blocks until
// ctx is done and returns late.
type scriptedDecoder struct {
	mu     sync.Mutex
	script []result
	late   string
	closed bool
}

type result struct {
	code string
	err  error
}

func (d *scriptedDecoder) Decode(ctx context.Context) (string, error) {
	d.mu.Lock()
	if len(d.script) > 0 {
		r := d.script[0]
		d.script = d.script[1:]
		d.mu.Unlock()
		return r.code, r.err
	}
	d.mu.Unlock()

	<-ctx.Done()
	return d.late, nil
}

func (d *scriptedDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *scriptedDecoder) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func runLoop(l *Loop) chan error {
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	return errc
}

// =============================================================================
// LOOP
// =============================================================================

func TestLoopSubmitsCodesFromReader(t *testing.T) {
	pr, pw := io.Pipe()
	c := newCollector()
	l := NewLoop(NewReaderDecoder(pr), time.Millisecond, c.submit, nil)
	errc := runLoop(l)

	go func() {
		_, _ = io.WriteString(pw, "A1\n\n  B2  \n")
	}()
	c.await(t, 2)

	l.Stop()
	require.NoError(t, <-errc)
	assert.Equal(t, []string{"A1", "B2"}, c.Codes())
	assert.False(t, l.Running())
	pw.Close()
}

func TestLoopIgnoresPerFrameErrors(t *testing.T) {
	d := &scriptedDecoder{script: []result{
		{err: errors.New("blurry frame")},
		{code: ""},
		{code: "A1"},
	}}
	c := newCollector()
	l := NewLoop(d, 0, c.submit, nil)
	errc := runLoop(l)

	c.await(t, 1)
	l.Stop()

	require.NoError(t, <-errc)
	assert.Equal(t, []string{"A1"}, c.Codes())
	assert.True(t, d.Closed())
}

func TestLoopNeverSubmitsAfterStop(t *testing.T) {
	d := &scriptedDecoder{late: "LATE"}
	c := newCollector()
	l := NewLoop(d, 0, c.submit, nil)
	errc := runLoop(l)

	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	l.Stop()

	require.NoError(t, <-errc)
	assert.Empty(t, c.Codes())
	assert.True(t, d.Closed())
}

func TestLoopTerminalErrorEndsRun(t *testing.T) {
	d := &scriptedDecoder{script: []result{{err: ErrPermissionDenied}}}
	c := newCollector()
	l := NewLoop(d, 0, c.submit, nil)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, d.Closed())
	assert.False(t, l.Running())

	// Stop after a terminal exit returns immediately.
	l.Stop()
}

func TestLoopContextCancel(t *testing.T) {
	d := &scriptedDecoder{late: "LATE"}
	c := newCollector()
	l := NewLoop(d, 0, c.submit, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	cancel()

	require.NoError(t, <-errc)
	assert.Empty(t, c.Codes())
}

func TestLoopStopBeforeRun(t *testing.T) {
	d := &scriptedDecoder{script: []result{{code: "A1"}}}
	l := NewLoop(d, 0, func(string) { t.Fatal("unexpected submit") }, nil)

	l.Stop()
	l.Stop()
	assert.ErrorIs(t, l.Run(context.Background()), ErrAlreadyStarted)
	assert.True(t, d.Closed())
}

// =============================================================================
// DECODERS
// =============================================================================

func TestReaderDecoderEndOfStream(t *testing.T) {
	pr, pw := io.Pipe()
	d := NewReaderDecoder(pr)
	defer d.Close()

	go func() {
		_, _ = io.WriteString(pw, "X9\n")
		pw.Close()
	}()

	code, err := d.Decode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "X9", code)

	_, err = d.Decode(context.Background())
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.True(t, IsTerminal(err))
}

func TestReaderDecoderCloseUnblocksRead(t *testing.T) {
	pr, pw := io.Pipe()
	d := NewReaderDecoder(pr)

	require.NoError(t, d.Close())

	_, err := io.WriteString(pw, "X9\n")
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	_, err = d.Decode(context.Background())
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestNewCommandDecoderMissingExecutable(t *testing.T) {
	_, err := NewCommandDecoder([]string{"stockscan-no-such-decoder"})
	assert.ErrorIs(t, err, ErrCameraUnavailable)

	_, err = NewCommandDecoder(nil)
	assert.ErrorIs(t, err, ErrCameraUnavailable)
}

func TestCommandDecoderReadsProcessOutput(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	d, err := NewCommandDecoder([]string{"echo", "QR-42"})
	require.NoError(t, err)
	defer d.Close()

	code, err := d.Decode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "QR-42", code)

	_, err = d.Decode(context.Background())
	assert.ErrorIs(t, err, ErrCameraUnavailable)
}

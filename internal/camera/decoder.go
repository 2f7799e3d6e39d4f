// =============================================================================
// Stock Scan - Camera Decoders
// =============================================================================
//
// Barcode symbology decoding is not done here. A decoder wraps an external
// capability that already yields raw code strings, one per line:
//   - ReaderDecoder  : any line-oriented stream (a pipe, a FIFO, a test feed)
//   - CommandDecoder : a decoder process such as `zbarcam --raw --nodisplay`
//
// A Decode call returns at most one code. Failures that make the camera path
// unusable wrap ErrCameraUnavailable or ErrPermissionDenied; any other error
// belongs to a single frame and the loop carries on.
//
// =============================================================================

package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrCameraUnavailable means no decoder could be started or it went away.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrPermissionDenied means the decoder or the device may not be used.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrStreamClosed means the decoder's output ended.
	ErrStreamClosed = errors.New("decoder stream closed")
)

// Decoder yields raw decoded strings.
type Decoder interface {
	// Decode blocks until a code is decoded or ctx is done.
	Decode(ctx context.Context) (string, error)

	// Close releases the camera resource.
	Close() error
}

// IsTerminal reports whether err ends the camera path for good.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrCameraUnavailable) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrStreamClosed)
}

// =============================================================================
// READER DECODER
// =============================================================================

type line struct {
	text string
	err  error
}

// ReaderDecoder reads one code per line from a stream.
type ReaderDecoder struct {
	src   io.ReadCloser
	lines chan line

	closeOnce sync.Once
	done      chan struct{}
}

// NewReaderDecoder starts reading r. Close closes r, which is what unblocks
// the reading goroutine; wrap a stream that cannot be closed (such as
// os.Stdin) with something that can, or the goroutine outlives the decoder.
func NewReaderDecoder(r io.ReadCloser) *ReaderDecoder {
	d := &ReaderDecoder{
		src:   r,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
	go d.read()
	return d
}

func (d *ReaderDecoder) read() {
	defer close(d.lines)

	scanner := bufio.NewScanner(d.src)
	for scanner.Scan() {
		select {
		case d.lines <- line{text: scanner.Text()}:
		case <-d.done:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case d.lines <- line{err: err}:
	case <-d.done:
	}
}

// Decode implements Decoder. Blank lines are frames without a code.
func (d *ReaderDecoder) Decode(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-d.lines:
		if !ok {
			return "", ErrStreamClosed
		}
		if l.err != nil {
			if errors.Is(l.err, io.EOF) {
				return "", ErrStreamClosed
			}
			return "", fmt.Errorf("%w: %v", ErrStreamClosed, l.err)
		}
		return strings.TrimSpace(l.text), nil
	}
}

// Close implements Decoder.
func (d *ReaderDecoder) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		err = d.src.Close()
	})
	return err
}

// =============================================================================
// COMMAND DECODER
// =============================================================================

// CommandDecoder runs an external decoder process and reads its stdout.
type CommandDecoder struct {
	cmd    *exec.Cmd
	reader *ReaderDecoder

	closeOnce sync.Once
}

// NewCommandDecoder starts argv. A missing executable wraps
// ErrCameraUnavailable; a permission failure wraps ErrPermissionDenied.
func NewCommandDecoder(argv []string) (*CommandDecoder, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%w: no decoder command configured", ErrCameraUnavailable)
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, classify(argv[0], err)
	}

	cmd := exec.Command(path, argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, classify(argv[0], err)
	}

	return &CommandDecoder{cmd: cmd, reader: NewReaderDecoder(stdout)}, nil
}

func classify(name string, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, name, err)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s not found", ErrCameraUnavailable, name)
	default:
		return fmt.Errorf("%w: %s: %v", ErrCameraUnavailable, name, err)
	}
}

// Decode implements Decoder. When the process exits the camera is
// reported unavailable.
func (d *CommandDecoder) Decode(ctx context.Context) (string, error) {
	code, err := d.reader.Decode(ctx)
	if errors.Is(err, ErrStreamClosed) {
		return "", fmt.Errorf("%w: decoder process exited", ErrCameraUnavailable)
	}
	return code, err
}

// Close stops the process and waits for it.
func (d *CommandDecoder) Close() error {
	d.closeOnce.Do(func() {
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		d.reader.Close()
		_ = d.cmd.Wait()
	})
	return nil
}

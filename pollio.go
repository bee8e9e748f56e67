package serialport

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

// RawFD performs single non-blocking I/O attempts on a descriptor. It must
// not wait: when nothing can be transferred it returns EAGAIN.
type RawFD interface {
	ReadOnce(p []byte) (int, error)
	WriteOnce(p []byte) (int, error)
}

// HangupDetector is implemented by descriptors that can tell a hung up line
// from a spurious zero-byte read. A tty whose device went away reads 0 bytes
// forever while still polling readable.
type HangupDetector interface {
	HungUp() bool
}

var errHangup = errors.New("hangup")

// Poller delivers one-shot readiness notifications for a descriptor. Both
// waits return ErrPollerClosed once the poller has been shut down and
// ctx.Err() when ctx ends first.
type Poller interface {
	WaitReadable(ctx context.Context) error
	WaitWritable(ctx context.Context) error
}

// PollIO turns single non-blocking attempts plus readiness notifications
// into a blocking, cancelable Read and Write. It buffers nothing beyond the
// current attempt.
type PollIO struct {
	FD     RawFD
	Poller Poller
	IsOpen func() bool
	Path   string
}

// Read returns at least one byte, or an error. A close observed at any
// point turns the failure into ErrCanceled.
func (pio *PollIO) Read(ctx context.Context, p []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := pio.FD.ReadOnce(p)
		if err == nil {
			if n > 0 {
				return n, nil
			}
			if !pio.IsOpen() {
				return 0, canceledError("read", pio.Path)
			}
			if h, ok := pio.FD.(HangupDetector); ok && h.HungUp() {
				return 0, disconnectError("read", pio.Path, errHangup)
			}
			// spurious wakeup
			continue
		}
		if err := pio.recover(ctx, "read", err, pio.Poller.WaitReadable); err != nil {
			return 0, err
		}
	}
}

// Write hands every byte of p to the OS, continuing after partial writes.
func (pio *PollIO) Write(ctx context.Context, p []byte) error {
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := pio.FD.WriteOnce(p)
		if n > 0 {
			p = p[n:]
		}
		if err == nil {
			if n == 0 {
				err = unix.EAGAIN
			} else {
				continue
			}
		}
		if err := pio.recover(ctx, "write", err, pio.Poller.WaitWritable); err != nil {
			return err
		}
	}
	return nil
}

// recover decides what a failed attempt means. It returns nil when the
// caller should try again.
func (pio *PollIO) recover(ctx context.Context, op string, err error, wait func(context.Context) error) error {
	if !pio.IsOpen() {
		return canceledError(op, pio.Path)
	}
	switch {
	case isTransient(err):
		werr := wait(ctx)
		if !pio.IsOpen() || errors.Is(werr, ErrPollerClosed) {
			return canceledError(op, pio.Path)
		}
		if werr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &OpError{Op: op, Path: pio.Path, Err: werr}
		}
		return nil
	case isDisconnect(err):
		return disconnectError(op, pio.Path, err)
	default:
		return &OpError{Op: op, Path: pio.Path, Err: err}
	}
}

// isTransient reports errors that only mean "not now"
func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.EINTR)
}

// isDisconnect reports errors a vanished device produces
func isDisconnect(err error) bool {
	return errors.Is(err, unix.EBADF) ||
		errors.Is(err, unix.ENXIO) ||
		errors.Is(err, unix.ENODEV) ||
		errors.Is(err, unix.EIO)
}

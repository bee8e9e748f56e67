package serialport

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// fdFile wraps a non-blocking descriptor in an *os.File so the runtime
// netpoller reports readiness. It implements both RawFD and Poller.
type fdFile struct {
	file   *os.File
	rc     syscall.RawConn
	closed atomic.Bool
}

var _ HangupDetector = (*fdFile)(nil)

func newFDFile(fd int, name string) (*fdFile, error) {
	file := os.NewFile(uintptr(fd), name)
	rc, err := file.SyscallConn()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &fdFile{file: file, rc: rc}, nil
}

func (f *fdFile) ReadOnce(p []byte) (int, error) {
	var (
		n    int
		rerr error
	)
	err := f.rc.Read(func(fd uintptr) bool {
		n, rerr = unix.Read(int(fd), p)
		return true
	})
	if err != nil {
		return 0, f.closedOr(err)
	}
	if n < 0 {
		n = 0
	}
	return n, rerr
}

func (f *fdFile) WriteOnce(p []byte) (int, error) {
	var (
		n    int
		werr error
	)
	err := f.rc.Write(func(fd uintptr) bool {
		n, werr = unix.Write(int(fd), p)
		return true
	})
	if err != nil {
		return 0, f.closedOr(err)
	}
	if n < 0 {
		n = 0
	}
	return n, werr
}

func (f *fdFile) WaitReadable(ctx context.Context) error {
	return f.wait(ctx, f.rc.Read, unix.POLLIN, f.file.SetReadDeadline)
}

func (f *fdFile) WaitWritable(ctx context.Context) error {
	return f.wait(ctx, f.rc.Write, unix.POLLOUT, f.file.SetWriteDeadline)
}

// wait parks until the runtime reports the descriptor ready. The runtime
// forgets earlier readiness before the first callback, so that callback
// polls the descriptor itself and only declines when nothing is pending;
// the second invocation accepts the readiness event.
func (f *fdFile) wait(ctx context.Context, do func(func(uintptr) bool) error, events int16, setDeadline func(time.Time) error) error {
	if f.closed.Load() {
		return ErrPollerClosed
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		setDeadline(time.Unix(1, 0))
		close(fired)
	})

	parked := false
	err := do(func(fd uintptr) bool {
		if parked {
			return true
		}
		parked = true
		return ready(int(fd), events)
	})

	if !stop() {
		<-fired
		setDeadline(time.Time{})
		return ctx.Err()
	}
	if err != nil {
		return f.closedOr(err)
	}
	return nil
}

// HungUp reports a hangup or error condition on the descriptor
func (f *fdFile) HungUp() bool {
	var revents int16
	err := f.rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if n, perr := unix.Poll(fds, 0); perr == nil && n > 0 {
			revents = fds[0].Revents
		}
	})
	return err == nil && revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}

// ready reports whether fd has any of events pending, without blocking
func ready(fd int, events int16) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0
}

func (f *fdFile) closedOr(err error) error {
	if f.closed.Load() {
		return ErrPollerClosed
	}
	return err
}

// control runs fn with the raw descriptor, failing once the file is closed
func (f *fdFile) control(fn func(fd int) error) error {
	var ferr error
	err := f.rc.Control(func(fd uintptr) {
		ferr = fn(int(fd))
	})
	if err != nil {
		return f.closedOr(err)
	}
	return ferr
}

func (f *fdFile) Close() error {
	f.closed.Store(true)
	return f.file.Close()
}

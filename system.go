package serialport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// SystemBinding drives a real tty device on Linux
type SystemBinding struct {
	logger zerolog.Logger

	mu      sync.Mutex
	session *session
}

// session is one open/close cycle of a SystemBinding
type session struct {
	path   string
	config Config
	file   *fdFile
	io     *PollIO
	open   atomic.Bool

	closing  chan struct{} // closed by Close
	draining atomic.Bool

	mu      sync.Mutex
	writing chan struct{} // closed when the in-flight write settles
}

// Ensure SystemBinding implements Binding at compile time
var _ Binding = (*SystemBinding)(nil)

// NewSystemBinding returns a closed binding
func NewSystemBinding(logger zerolog.Logger) *SystemBinding {
	return &SystemBinding{logger: logger}
}

func (b *SystemBinding) List(ctx context.Context) ([]PortDescriptor, error) {
	return ListPorts(ctx)
}

func (b *SystemBinding) IsOpen() bool {
	s := b.current()
	return s != nil && s.open.Load()
}

func (b *SystemBinding) current() *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// active returns the open session or ErrNotOpen
func (b *SystemBinding) active(op string) (*session, error) {
	s := b.current()
	if s == nil || !s.open.Load() {
		return nil, &OpError{Op: op, Err: ErrNotOpen}
	}
	return s, nil
}

func (b *SystemBinding) Open(ctx context.Context, path string, config Config) error {
	if err := ValidateOpenArgs(path, config); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil && b.session.open.Load() {
		return &OpError{Op: "open", Path: path, Err: ErrAlreadyOpen}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return &OpError{Op: "open", Path: path, Err: openError(err)}
	}

	if config.Lock {
		if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
			unix.Close(fd)
			if errors.Is(err, unix.EWOULDBLOCK) {
				err = fmt.Errorf("%w: cannot lock port", ErrDeviceInUse)
			}
			return &OpError{Op: "open", Path: path, Err: err}
		}
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return &OpError{Op: "open", Path: path, Err: err}
	}

	file, err := newFDFile(fd, path)
	if err != nil {
		return &OpError{Op: "open", Path: path, Err: err}
	}

	s := &session{path: path, config: config, file: file, closing: make(chan struct{})}
	s.io = &PollIO{FD: file, Poller: file, IsOpen: s.open.Load, Path: path}
	s.open.Store(true)

	// Some adapters and every pty reject modem ioctls; the port stays usable
	if err := file.control(func(fd int) error { return applyLines(fd, config) }); err != nil {
		b.logger.Debug().Err(err).Str("path", path).Msg("initial control lines not applied")
	}

	b.session = s
	b.logger.Debug().
		Str("path", path).
		Int("baud", config.BaudRate).
		Int("databits", config.DataBits).
		Stringer("stopbits", config.StopBits).
		Stringer("parity", config.Parity).
		Msg("port opened")
	return nil
}

func openError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %w", ErrDeviceInUse, err)
	}
	return err
}

func applyLines(fd int, config Config) error {
	return multierr.Combine(
		setModemLine(fd, unix.TIOCM_RTS, config.RTS),
		setModemLine(fd, unix.TIOCM_DTR, config.DTR),
		setBreak(fd, config.BRK),
	)
}

func (b *SystemBinding) Close() error {
	b.mu.Lock()
	s := b.session
	if s == nil || !s.open.Load() {
		b.mu.Unlock()
		return &OpError{Op: "close", Err: ErrNotOpen}
	}
	s.open.Store(false)
	close(s.closing)
	b.mu.Unlock()

	// Waiters parked in the poller wake up and report ErrCanceled
	var err error
	if s.draining.Load() {
		// Discarding unsent output ends a tcdrain stalled by flow control
		if ferr := s.file.control(func(fd int) error {
			return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCOFLUSH)
		}); ferr != nil {
			b.logger.Debug().Err(ferr).Str("path", s.path).Msg("output flush on close failed")
		}
	}
	if s.config.Lock {
		err = multierr.Append(err, s.file.control(func(fd int) error {
			return unix.Flock(fd, unix.LOCK_UN)
		}))
	}
	err = multierr.Append(err, s.file.Close())

	b.logger.Debug().Str("path", s.path).Msg("port closed")
	if err != nil {
		return &OpError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

func (b *SystemBinding) Read(ctx context.Context, p []byte) (int, error) {
	if err := ValidateReadArgs(p); err != nil {
		return 0, err
	}
	s, err := b.active("read")
	if err != nil {
		return 0, err
	}
	return s.io.Read(ctx, p)
}

func (b *SystemBinding) Write(ctx context.Context, p []byte) error {
	s, err := b.active("write")
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.writing = done
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.writing == done {
			s.writing = nil
		}
		s.mu.Unlock()
		close(done)
	}()

	return s.io.Write(ctx, p)
}

func (b *SystemBinding) Update(ctx context.Context, opts UpdateOptions) error {
	if err := ValidateUpdateArgs(opts); err != nil {
		return err
	}
	s, err := b.active("update")
	if err != nil {
		return err
	}
	if err := s.file.control(func(fd int) error { return updateBaudRate(fd, opts.BaudRate) }); err != nil {
		return b.ioctlError(s, "update", err)
	}
	return nil
}

func (b *SystemBinding) Set(ctx context.Context, lines ControlLines) error {
	s, err := b.active("set")
	if err != nil {
		return err
	}
	err = s.file.control(func(fd int) error {
		var err error
		if lines.RTS != nil {
			err = multierr.Append(err, setModemLine(fd, unix.TIOCM_RTS, *lines.RTS))
		}
		if lines.DTR != nil {
			err = multierr.Append(err, setModemLine(fd, unix.TIOCM_DTR, *lines.DTR))
		}
		if lines.BRK != nil {
			err = multierr.Append(err, setBreak(fd, *lines.BRK))
		}
		return err
	})
	if err != nil {
		return b.ioctlError(s, "set", err)
	}
	return nil
}

func (b *SystemBinding) Get(ctx context.Context) (RemoteStatus, error) {
	s, err := b.active("get")
	if err != nil {
		return RemoteStatus{}, err
	}
	var status int
	err = s.file.control(func(fd int) error {
		var err error
		status, err = getModemStatus(fd)
		return err
	})
	if err != nil {
		return RemoteStatus{}, b.ioctlError(s, "get", err)
	}
	return remoteStatusFromTIOCM(status), nil
}

func (b *SystemBinding) GetBaudRate(ctx context.Context) (int, error) {
	s, err := b.active("getBaudRate")
	if err != nil {
		return 0, err
	}
	var rate int
	err = s.file.control(func(fd int) error {
		var err error
		rate, err = readBaudRate(fd)
		return err
	})
	if err != nil {
		return 0, b.ioctlError(s, "getBaudRate", err)
	}
	return rate, nil
}

func (b *SystemBinding) Flush(ctx context.Context) error {
	s, err := b.active("flush")
	if err != nil {
		return err
	}
	err = s.file.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	})
	if err != nil {
		return b.ioctlError(s, "flush", err)
	}
	return nil
}

func (b *SystemBinding) Drain(ctx context.Context) error {
	s, err := b.active("drain")
	if err != nil {
		return err
	}

	s.mu.Lock()
	writing := s.writing
	s.mu.Unlock()
	if writing != nil {
		select {
		case <-writing:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !s.open.Load() {
		return canceledError("drain", s.path)
	}

	// tcdrain blocks in the kernel and ignores ctx
	s.draining.Store(true)
	err = blockingCall(ctx, s.closing, func() error {
		defer s.draining.Store(false)
		return s.file.control(func(fd int) error {
			return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
		})
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCanceled):
		return canceledError("drain", s.path)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	}
	return b.ioctlError(s, "drain", err)
}

// blockingCall runs fn on its own goroutine and returns whichever comes
// first: its result, ctx.Err(), or ErrCanceled once closing is closed.
// fn keeps running in the background after an early return.
func blockingCall(ctx context.Context, closing <-chan struct{}, fn func() error) error {
	result := make(chan error, 1)
	go func() { result <- fn() }()

	select {
	case err := <-result:
		return err
	case <-closing:
		return ErrCanceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ioctlError tags a failed control call the same way the I/O loop does
func (b *SystemBinding) ioctlError(s *session, op string, err error) error {
	switch {
	case !s.open.Load() || errors.Is(err, ErrPollerClosed):
		return canceledError(op, s.path)
	case isDisconnect(err):
		return disconnectError(op, s.path, err)
	}
	return &OpError{Op: op, Path: s.path, Err: err}
}

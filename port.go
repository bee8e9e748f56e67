package serialport

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Port serializes access to a Binding. Reads queue behind reads and writes
// behind writes, each in call order, so the binding never sees two reads or
// two writes at once. Port implements io.ReadWriteCloser; once the binding
// has been closed, reads report io.EOF.
type Port struct {
	binding Binding
	path    string
	config  Config
	logger  zerolog.Logger

	onDisconnect func(error)

	reads  opQueue
	writes opQueue

	mu         sync.Mutex
	wasOpened  bool
	generation int // bumps on every Open, guards the once-per-session disconnect close
	dropped    int // generation already closed because of a disconnect
}

// Ensure Port implements the io interfaces at compile time
var _ io.ReadWriteCloser = (*Port)(nil)

// PortOption configures a Port
type PortOption func(*Port)

// WithLogger sets the logger used for lifecycle and fault events
func WithLogger(logger zerolog.Logger) PortOption {
	return func(p *Port) {
		p.logger = logger
	}
}

// WithDisconnectHandler registers fn to run after the port closed itself
// because the device vanished
func WithDisconnectHandler(fn func(error)) PortOption {
	return func(p *Port) {
		p.onDisconnect = fn
	}
}

// NewPort returns a closed Port for path on binding
func NewPort(binding Binding, path string, config Config, opts ...PortOption) *Port {
	p := &Port{
		binding: binding,
		path:    path,
		config:  config,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open opens a serial port on the system binding with the given device path
// and options
func Open(device string, opts ...Option) (*Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	p := NewPort(NewSystemBinding(zerolog.Nop()), device, config)
	if err := p.Open(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Port) Path() string     { return p.path }
func (p *Port) Binding() Binding { return p.binding }
func (p *Port) IsOpen() bool     { return p.binding.IsOpen() }

// Config returns the configuration, with the baud rate of the last Update
func (p *Port) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// Open opens the underlying binding
func (p *Port) Open(ctx context.Context) error {
	if err := p.binding.Open(ctx, p.path, p.Config()); err != nil {
		return err
	}
	p.mu.Lock()
	p.wasOpened = true
	p.generation++
	p.mu.Unlock()
	p.logger.Info().Str("path", p.path).Msg("serial port open")
	return nil
}

// Close closes the binding; pending reads return io.EOF and pending writes
// fail with ErrCanceled
func (p *Port) Close() error {
	if err := p.binding.Close(); err != nil {
		return err
	}
	p.logger.Info().Str("path", p.path).Msg("serial port closed")
	return nil
}

// Read implements io.Reader
func (p *Port) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

// ReadContext returns what a single binding read yields, never more. It
// returns io.EOF when the port was closed before or while it waited.
func (p *Port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	release, err := p.reads.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := p.binding.Read(ctx, buf)
	if err != nil {
		return 0, p.readError(err)
	}
	return n, nil
}

func (p *Port) readError(err error) error {
	switch {
	case IsCanceled(err):
		return io.EOF
	case errors.Is(err, ErrNotOpen):
		p.mu.Lock()
		opened := p.wasOpened
		p.mu.Unlock()
		if opened {
			return io.EOF
		}
	case IsDisconnect(err):
		p.disconnected(err)
	}
	return err
}

// Write implements io.Writer
func (p *Port) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

// WriteContext waits for earlier writes to settle, then hands data to the
// binding. It returns len(data) once the OS accepted every byte.
func (p *Port) WriteContext(ctx context.Context, data []byte) (int, error) {
	queuedOpen := p.binding.IsOpen()
	release, err := p.writes.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := p.binding.Write(ctx, data); err != nil {
		if IsDisconnect(err) {
			p.disconnected(err)
		}
		return 0, p.queuedError("write", queuedOpen, err)
	}
	return len(data), nil
}

// Drain waits for every queued write, then for the OS output buffer to empty
func (p *Port) Drain(ctx context.Context) error {
	queuedOpen := p.binding.IsOpen()
	release, err := p.writes.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	if err := p.binding.Drain(ctx); err != nil {
		return p.queuedError("drain", queuedOpen, err)
	}
	return nil
}

// queuedError reports an operation that was queued on an open port and found
// it closed once its turn came as canceled rather than not open
func (p *Port) queuedError(op string, queuedOpen bool, err error) error {
	if queuedOpen && errors.Is(err, ErrNotOpen) {
		return canceledError(op, p.path)
	}
	return err
}

// Flush discards unread input and unsent output
func (p *Port) Flush(ctx context.Context) error {
	return p.binding.Flush(ctx)
}

// Update changes the baud rate of the open port
func (p *Port) Update(ctx context.Context, opts UpdateOptions) error {
	if err := p.binding.Update(ctx, opts); err != nil {
		return err
	}
	p.mu.Lock()
	p.config.BaudRate = opts.BaudRate
	p.mu.Unlock()
	return nil
}

// Set changes the outgoing control lines
func (p *Port) Set(ctx context.Context, lines ControlLines) error {
	return p.binding.Set(ctx, lines)
}

// Get reads the incoming modem status lines
func (p *Port) Get(ctx context.Context) (RemoteStatus, error) {
	return p.binding.Get(ctx)
}

// GetBaudRate reads the baud rate the binding reports
func (p *Port) GetBaudRate(ctx context.Context) (int, error) {
	return p.binding.GetBaudRate(ctx)
}

// SetRTS sets the RTS signal state
func (p *Port) SetRTS(state bool) error {
	return p.binding.Set(context.Background(), ControlLines{RTS: Line(state)})
}

// SetDTR sets DTR signal state
func (p *Port) SetDTR(state bool) error {
	return p.binding.Set(context.Background(), ControlLines{DTR: Line(state)})
}

// SetBreak starts or stops a break condition
func (p *Port) SetBreak(state bool) error {
	return p.binding.Set(context.Background(), ControlLines{BRK: Line(state)})
}

// disconnected closes the binding once per open session
func (p *Port) disconnected(cause error) {
	p.mu.Lock()
	if p.dropped == p.generation {
		p.mu.Unlock()
		return
	}
	p.dropped = p.generation
	p.mu.Unlock()

	p.logger.Warn().Err(cause).Str("path", p.path).Msg("serial device disconnected")
	if err := p.binding.Close(); err != nil && !errors.Is(err, ErrNotOpen) {
		p.logger.Debug().Err(err).Str("path", p.path).Msg("close after disconnect failed")
	}
	if p.onDisconnect != nil {
		p.onDisconnect(cause)
	}
}

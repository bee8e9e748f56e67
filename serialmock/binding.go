package serialmock

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/allbin/serialport"
)

// LineState is the outgoing control line state recorded by Set
type LineState struct {
	RTS bool
	DTR bool
	BRK bool
}

// Binding is an in-memory serialport.Binding. All state is guarded by the
// registry lock.
type Binding struct {
	registry *Registry

	open    bool
	port    *mockPort
	config  serialport.Config
	lines   LineState
	closing chan struct{} // closed by Close, one per open session

	pendingRead chan error    // parked read, at most one
	writing     chan struct{} // in-flight write, closed when it settles
}

// Ensure Binding implements serialport.Binding at compile time
var _ serialport.Binding = (*Binding)(nil)

func notOpen(op string) error {
	return &serialport.OpError{Op: op, Err: serialport.ErrNotOpen}
}

func (b *Binding) List(ctx context.Context) ([]serialport.PortDescriptor, error) {
	return b.registry.List(ctx)
}

func (b *Binding) IsOpen() bool {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.open
}

func (b *Binding) Open(ctx context.Context, path string, config serialport.Config) error {
	if err := serialport.ValidateOpenArgs(path, config); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.open {
		return &serialport.OpError{Op: "open", Path: path, Err: serialport.ErrAlreadyOpen}
	}
	port, ok := r.ports[path]
	if !ok {
		return &serialport.OpError{Op: "open", Path: path,
			Err: fmt.Errorf("%w: no mock port registered, call CreatePort first", serialport.ErrDeviceNotFound)}
	}
	if port.openCfg != nil && port.openCfg.Lock {
		return &serialport.OpError{Op: "open", Path: path,
			Err: fmt.Errorf("%w: port is locked", serialport.ErrDeviceInUse)}
	}

	b.open = true
	b.port = port
	b.config = config
	b.lines = LineState{RTS: config.RTS, DTR: config.DTR, BRK: config.BRK}
	b.closing = make(chan struct{})
	port.openCfg = &b.config

	if port.opts.Echo && len(port.opts.ReadyData) > 0 {
		ready := clone(port.opts.ReadyData)
		closing := b.closing
		go func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if b.open && b.closing == closing {
				b.emitLocked(ready)
			}
		}()
	}
	return nil
}

// Close settles a parked read with ErrCanceled; an in-flight write notices
// the close when it completes
func (b *Binding) Close() error {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if !b.open {
		return notOpen("close")
	}
	b.open = false
	close(b.closing)
	if b.port.openCfg == &b.config {
		b.port.openCfg = nil
	}
	if b.pendingRead != nil {
		b.pendingRead <- serialport.CanceledError("read", b.port.path)
		b.pendingRead = nil
	}
	return nil
}

func (b *Binding) Read(ctx context.Context, p []byte) (int, error) {
	if err := serialport.ValidateReadArgs(p); err != nil {
		return 0, err
	}

	r := b.registry
	r.mu.Lock()
	for {
		if !b.open {
			r.mu.Unlock()
			return 0, notOpen("read")
		}
		if len(b.port.data) > 0 {
			limit := min(len(p), b.port.opts.MaxReadSize)
			n := copy(p[:limit], b.port.data)
			b.port.data = b.port.data[n:]
			r.mu.Unlock()
			return n, nil
		}
		if b.pendingRead != nil {
			r.mu.Unlock()
			return 0, &serialport.OpError{Op: "read", Path: b.port.path, Err: serialport.ErrReadInProgress}
		}

		wake := make(chan error, 1)
		b.pendingRead = wake
		r.mu.Unlock()

		select {
		case err := <-wake:
			if err != nil {
				return 0, err
			}
		case <-ctx.Done():
			r.mu.Lock()
			if b.pendingRead == wake {
				b.pendingRead = nil
			}
			r.mu.Unlock()
			return 0, ctx.Err()
		}
		r.mu.Lock()
	}
}

func (b *Binding) Write(ctx context.Context, p []byte) error {
	r := b.registry
	r.mu.Lock()
	if !b.open {
		r.mu.Unlock()
		return notOpen("write")
	}
	path := b.port.path
	if b.writing != nil {
		r.mu.Unlock()
		return &serialport.OpError{Op: "write", Path: path, Err: serialport.ErrWriteInProgress}
	}
	if len(p) == 0 {
		r.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	b.writing = done
	closing := b.closing
	latency := b.port.opts.WriteLatency
	r.mu.Unlock()

	var waitErr error
	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-closing:
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
	} else {
		runtime.Gosched()
		waitErr = ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b.writing = nil
	close(done)

	if !b.open || b.closing != closing {
		return serialport.CanceledError("write", path)
	}
	if waitErr != nil {
		return waitErr
	}

	data := clone(p)
	b.port.lastWrite = data
	if b.port.opts.Record {
		b.port.recording = append(b.port.recording, data...)
	}
	if b.port.opts.Echo {
		b.emitLocked(data)
	}
	return nil
}

// EmitData pretends the device sent data. It fails when the binding is
// closed.
func (b *Binding) EmitData(data []byte) error {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open {
		return &serialport.OpError{Op: "emit", Err: fmt.Errorf("%w: port must be open to receive data", serialport.ErrNotOpen)}
	}
	b.emitLocked(clone(data))
	return nil
}

func (b *Binding) emitLocked(data []byte) {
	b.port.data = append(b.port.data, data...)
	if b.pendingRead != nil {
		b.pendingRead <- nil
		b.pendingRead = nil
	}
}

func (b *Binding) Update(ctx context.Context, opts serialport.UpdateOptions) error {
	if err := serialport.ValidateUpdateArgs(opts); err != nil {
		return err
	}
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open {
		return notOpen("update")
	}
	b.config.BaudRate = opts.BaudRate
	return nil
}

// Set records the lines; Get does not reflect them
func (b *Binding) Set(ctx context.Context, lines serialport.ControlLines) error {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open {
		return notOpen("set")
	}
	if lines.RTS != nil {
		b.lines.RTS = *lines.RTS
	}
	if lines.DTR != nil {
		b.lines.DTR = *lines.DTR
	}
	if lines.BRK != nil {
		b.lines.BRK = *lines.BRK
	}
	return nil
}

// Get returns the fixed status configured for the port
func (b *Binding) Get(ctx context.Context) (serialport.RemoteStatus, error) {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open {
		return serialport.RemoteStatus{}, notOpen("get")
	}
	return b.port.status, nil
}

func (b *Binding) GetBaudRate(ctx context.Context) (int, error) {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open {
		return 0, notOpen("getBaudRate")
	}
	return b.config.BaudRate, nil
}

func (b *Binding) Flush(ctx context.Context) error {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open {
		return notOpen("flush")
	}
	b.port.data = nil
	return nil
}

func (b *Binding) Drain(ctx context.Context) error {
	r := b.registry
	r.mu.Lock()
	if !b.open {
		r.mu.Unlock()
		return notOpen("drain")
	}
	writing := b.writing
	closing := b.closing
	path := b.port.path
	r.mu.Unlock()

	if writing != nil {
		select {
		case <-writing:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !b.open || b.closing != closing {
		return serialport.CanceledError("drain", path)
	}
	return nil
}

// Lines returns the control line state recorded by Open and Set
func (b *Binding) Lines() LineState {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.lines
}

// LastWrite returns a copy of the last completed write on the open port
func (b *Binding) LastWrite() []byte {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	if b.port == nil {
		return nil
	}
	return clone(b.port.lastWrite)
}

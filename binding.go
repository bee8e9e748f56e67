package serialport

import (
	"context"
	"fmt"
)

// Binding is the raw serial I/O contract shared by the system binding and
// test doubles. A Binding starts closed; every method except List and Open
// fails with ErrNotOpen until Open succeeds.
//
// At most one Read and one Write may be in flight. Close settles both with
// ErrCanceled. A vanished device surfaces as ErrDisconnected, after which
// the caller should Close.
type Binding interface {
	// List enumerates ports. Failures on single ports are skipped.
	List(ctx context.Context) ([]PortDescriptor, error)
	Open(ctx context.Context, path string, config Config) error
	IsOpen() bool
	Close() error

	// Read fills p with at least one byte. It never returns 0, nil.
	Read(ctx context.Context, p []byte) (int, error)
	// Write returns once every byte of p was handed to the OS.
	Write(ctx context.Context, p []byte) error

	Update(ctx context.Context, opts UpdateOptions) error
	Set(ctx context.Context, lines ControlLines) error
	Get(ctx context.Context) (RemoteStatus, error)
	GetBaudRate(ctx context.Context) (int, error)

	// Flush discards unread input and unsent output
	Flush(ctx context.Context) error
	// Drain waits for any in-flight write, then for the output buffer to empty
	Drain(ctx context.Context) error
}

// ValidateOpenArgs checks the arguments every Binding.Open receives
func ValidateOpenArgs(path string, config Config) error {
	if path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidArgument)
	}
	return config.Validate()
}

// ValidateReadArgs rejects an empty read buffer
func ValidateReadArgs(p []byte) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: read buffer is empty", ErrInvalidArgument)
	}
	return nil
}

// ValidateUpdateArgs checks the new settings of an open port
func ValidateUpdateArgs(opts UpdateOptions) error {
	return ValidateBaudRate(opts.BaudRate)
}

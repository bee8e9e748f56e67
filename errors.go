package serialport

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	// Validation errors. Bad arguments are fatal to the call only.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidBaudRate = fmt.Errorf("%w: invalid baud rate", ErrInvalidArgument)
	ErrInvalidConfig   = fmt.Errorf("%w: invalid serial configuration", ErrInvalidArgument)

	// State-contract violations
	ErrNotOpen     = errors.New("port is not open")
	ErrAlreadyOpen = errors.New("port is already open")

	// Operation outcomes
	ErrCanceled     = errors.New("operation canceled")
	ErrDisconnected = errors.New("serial device disconnected")
	ErrPollerClosed = errors.New("poller is closed")

	ErrWriteInProgress = errors.New("overlapping writes are not supported")
	ErrReadInProgress  = errors.New("overlapping reads are not supported")

	// Open failures
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// OpError records the operation and port path of a failed binding call.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// IsCanceled reports whether err was caused by the port closing while the
// operation was outstanding.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsDisconnect reports whether err indicates the device is gone. Callers
// should Close the port when they see it.
func IsDisconnect(err error) bool {
	return errors.Is(err, ErrDisconnected)
}

func canceledError(op, path string) error {
	return &OpError{Op: op, Path: path, Err: ErrCanceled}
}

func disconnectError(op, path string, cause error) error {
	return &OpError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrDisconnected, cause)}
}

// CanceledError returns the error a binding reports when op was aborted by
// Close. Exported for bindings living outside this package.
func CanceledError(op, path string) error {
	return canceledError(op, path)
}

// Package serialport provides byte-oriented serial port communication on
// Linux behind one uniform contract: open, read, write, close, change the
// baud rate, read and set modem lines, flush and drain.
//
// The library has three layers. A Binding does the raw work against one
// device. PollIO is the retry loop a Binding uses to turn non-blocking
// descriptor attempts into cancelable reads and writes. Port sits on top
// and makes sure the binding never sees two reads or two writes at once.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, locked):
//
//	port, err := serialport.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// Port implements io.ReadWriteCloser. Once the port has been closed, reads
// return io.EOF, so io.Copy and bufio.Scanner stop cleanly.
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	port, err := serialport.Open("/dev/ttyUSB0",
//	    serialport.WithBaudRate(9600),
//	    serialport.WithParity(serialport.ParityEven),
//	    serialport.WithRTSCTS(true),
//	    serialport.WithInitialDTR(false),
//	)
//
// DataBits, StopBits and Parity are fixed for the lifetime of an open port.
// Only the baud rate can change afterwards:
//
//	err = port.Update(ctx, serialport.UpdateOptions{BaudRate: 57600})
//
// # Bindings
//
// NewPort accepts any Binding. SystemBinding drives real ttys; the
// serialmock package provides an in-memory binding with the same error
// behavior for tests:
//
//	binding := serialport.NewSystemBinding(logger)
//	port := serialport.NewPort(binding, "/dev/ttyACM0", serialport.DefaultConfig(),
//	    serialport.WithLogger(logger),
//	    serialport.WithDisconnectHandler(func(err error) { reconnect() }),
//	)
//	err := port.Open(ctx)
//
// # Port Discovery
//
// List available serial ports with USB metadata from sysfs:
//
//	ports, err := serialport.ListPorts(ctx)
//	for _, p := range ports {
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        p.Path, p.Description, p.VendorID, p.ProductID, p.SerialNumber)
//	}
//
// # Control Lines
//
//	status, err := port.Get(ctx) // CTS, DSR, DCD
//	err = port.Set(ctx, serialport.ControlLines{RTS: serialport.Line(false)})
//	err = port.SetDTR(true)
//
// # USB Device Management
//
// Reset hung USB devices programmatically:
//
//	err := serialport.ResetUSBDevice(ctx, "/dev/ttyUSB0")
//	err = serialport.ResetUSBDeviceBySerial(ctx, "FT123456")
//
// Requires the usbreset utility from usbutils and usually root.
//
// # Error Handling
//
// Errors are matched with errors.Is:
//
//	ErrNotOpen          // operation on a closed port
//	ErrCanceled         // the port was closed while the operation waited
//	ErrDisconnected     // the device went away; close and reopen
//	ErrInvalidArgument  // bad path, buffer or configuration
//	ErrDeviceInUse      // another process holds the lock
//
// IsCanceled and IsDisconnect are shortcuts for the two runtime outcomes.
// Nothing times out on its own; pass a context with a deadline to ReadContext
// or WriteContext to bound a wait.
package serialport

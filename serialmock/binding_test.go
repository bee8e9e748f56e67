package serialmock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/allbin/serialport"
)

func openBinding(t *testing.T, reg *Registry, path string) *Binding {
	t.Helper()
	b := reg.NewBinding()
	if err := b.Open(context.Background(), path, serialport.DefaultConfig()); err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	return b
}

func readAsync(b *Binding, size int) <-chan readResult {
	result := make(chan readResult, 1)
	go func() {
		buf := make([]byte, size)
		n, err := b.Read(context.Background(), buf)
		result <- readResult{data: buf[:n], err: err}
	}()
	return result
}

type readResult struct {
	data []byte
	err  error
}

func waitRead(t *testing.T, result <-chan readResult) readResult {
	t.Helper()
	select {
	case r := <-result:
		return r
	case <-time.After(time.Second):
		t.Fatal("Read did not complete")
		return readResult{}
	}
}

func TestPendingReadResolvesWithEmittedData(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("COM_TEST", PortOptions{})
	b := openBinding(t, reg, "COM_TEST")
	defer b.Close()

	result := readAsync(b, 5)
	time.Sleep(10 * time.Millisecond)
	if err := b.EmitData([]byte("HELLO")); err != nil {
		t.Fatalf("EmitData failed: %v", err)
	}

	r := waitRead(t, result)
	if r.err != nil {
		t.Fatalf("Read failed: %v", r.err)
	}
	if string(r.data) != "HELLO" {
		t.Errorf("Expected HELLO, got %q", r.data)
	}
}

func TestEchoReadyData(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{Echo: true, ReadyData: []byte("READY")})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	r := waitRead(t, readAsync(b, 16))
	if r.err != nil {
		t.Fatalf("Read failed: %v", r.err)
	}
	if string(r.data) != "READY" {
		t.Errorf("Expected READY without any write, got %q", r.data)
	}
}

func TestReadyDataNeedsEcho(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{ReadyData: []byte("READY")})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Read(ctx, make([]byte, 8)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected no data without echo, got %v", err)
	}
}

func TestCloseCancelsPendingRead(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	b := openBinding(t, reg, "/dev/ROBOT")

	result := readAsync(b, 8)
	time.Sleep(10 * time.Millisecond)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r := waitRead(t, result)
	if !serialport.IsCanceled(r.err) {
		t.Errorf("Expected canceled, got %v", r.err)
	}
	if len(r.data) != 0 {
		t.Errorf("Expected no data, got %q", r.data)
	}
}

func TestOverlappingReadRejected(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	first := readAsync(b, 8)
	time.Sleep(10 * time.Millisecond)
	if _, err := b.Read(context.Background(), make([]byte, 8)); !errors.Is(err, serialport.ErrReadInProgress) {
		t.Errorf("Expected ErrReadInProgress, got %v", err)
	}

	b.EmitData([]byte("x"))
	if r := waitRead(t, first); r.err != nil || string(r.data) != "x" {
		t.Errorf("First read: expected x, got %q, %v", r.data, r.err)
	}
}

func TestWriteInProgress(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{WriteLatency: 20 * time.Millisecond})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	done := make(chan error, 1)
	go func() { done <- b.Write(context.Background(), []byte("A")) }()
	time.Sleep(5 * time.Millisecond)

	if err := b.Write(context.Background(), []byte("B")); !errors.Is(err, serialport.ErrWriteInProgress) {
		t.Errorf("Expected ErrWriteInProgress, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if got := string(b.LastWrite()); got != "A" {
		t.Errorf("Expected last write A, got %q", got)
	}
}

func TestCloseDuringWriteCancels(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{Record: true, WriteLatency: time.Second})
	b := openBinding(t, reg, "/dev/ROBOT")

	done := make(chan error, 1)
	go func() { done <- b.Write(context.Background(), []byte("lost")) }()
	time.Sleep(5 * time.Millisecond)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if !serialport.IsCanceled(err) {
			t.Errorf("Expected canceled, got %v", err)
		}
	case <-time.After(time.Second / 2):
		t.Fatal("Write did not settle after Close")
	}
	if rec := reg.Recording("/dev/ROBOT"); len(rec) != 0 {
		t.Errorf("Canceled write was recorded: %q", rec)
	}
}

func TestWriteRecordAndEcho(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{Echo: true, Record: true})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()
	ctx := context.Background()

	for _, chunk := range []string{"abc", "def"} {
		if err := b.Write(ctx, []byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if got := string(reg.Recording("/dev/ROBOT")); got != "abcdef" {
		t.Errorf("Expected recording abcdef, got %q", got)
	}
	if got := string(reg.LastWrite("/dev/ROBOT")); got != "def" {
		t.Errorf("Expected last write def, got %q", got)
	}

	buf := make([]byte, 16)
	n, err := b.Read(ctx, buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:n]) != "abcdef" {
		t.Errorf("Expected echoed abcdef, got %q", buf[:n])
	}
}

func TestWriteCanceledContextWithoutLatency(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{Echo: true, Record: true})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Write(ctx, []byte("abc")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if got := reg.LastWrite("/dev/ROBOT"); len(got) != 0 {
		t.Errorf("Expected no last write, got %q", got)
	}
	if got := reg.Recording("/dev/ROBOT"); len(got) != 0 {
		t.Errorf("Expected empty recording, got %q", got)
	}

	if err := b.Write(context.Background(), []byte("def")); err != nil {
		t.Fatalf("Write after canceled write failed: %v", err)
	}
	if got := string(reg.LastWrite("/dev/ROBOT")); got != "def" {
		t.Errorf("Expected last write def, got %q", got)
	}
}

func TestMaxReadSize(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{MaxReadSize: 2})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	b.EmitData([]byte("12345"))
	var chunks []string
	for i := 0; i < 3; i++ {
		buf := make([]byte, 8)
		n, err := b.Read(context.Background(), buf)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		chunks = append(chunks, string(buf[:n]))
	}
	if chunks[0] != "12" || chunks[1] != "34" || chunks[2] != "5" {
		t.Errorf("Expected 12/34/5, got %v", chunks)
	}
}

func TestFlushDiscardsUnreadData(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	b.EmitData([]byte("stale"))
	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.Read(ctx, make([]byte, 8)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected no data after flush, got %v", err)
	}
}

func TestDrainWaitsForWrite(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{Record: true, WriteLatency: 15 * time.Millisecond})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()

	go b.Write(context.Background(), []byte("data"))
	time.Sleep(3 * time.Millisecond)
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if got := string(reg.Recording("/dev/ROBOT")); got != "data" {
		t.Errorf("Drain returned before the write settled, recording %q", got)
	}
}

func TestGetReturnsFixedStatus(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()
	ctx := context.Background()

	if err := b.Set(ctx, serialport.ControlLines{DTR: serialport.Line(true), RTS: serialport.Line(false)}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	status, err := b.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status != (serialport.RemoteStatus{CTS: true}) {
		t.Errorf("Expected fixed status {CTS}, got %+v", status)
	}
	if lines := b.Lines(); !lines.DTR || lines.RTS {
		t.Errorf("Expected DTR on and RTS off recorded, got %+v", lines)
	}

	reg.CreatePort("/dev/MODEM", PortOptions{Status: &serialport.RemoteStatus{DSR: true, DCD: true}})
	modem := openBinding(t, reg, "/dev/MODEM")
	defer modem.Close()
	if status, _ := modem.Get(ctx); status != (serialport.RemoteStatus{DSR: true, DCD: true}) {
		t.Errorf("Expected configured status, got %+v", status)
	}
}

func TestUpdateChangesBaudRate(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	b := openBinding(t, reg, "/dev/ROBOT")
	defer b.Close()
	ctx := context.Background()

	if rate, _ := b.GetBaudRate(ctx); rate != 115200 {
		t.Errorf("Expected 115200, got %d", rate)
	}
	if err := b.Update(ctx, serialport.UpdateOptions{BaudRate: 57600}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if rate, _ := b.GetBaudRate(ctx); rate != 57600 {
		t.Errorf("Expected 57600, got %d", rate)
	}
	if err := b.Update(ctx, serialport.UpdateOptions{BaudRate: -1}); !errors.Is(err, serialport.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	ctx := context.Background()

	b := reg.NewBinding()
	if err := b.Open(ctx, "/dev/MISSING", serialport.DefaultConfig()); !errors.Is(err, serialport.ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
	if err := b.Open(ctx, "", serialport.DefaultConfig()); !errors.Is(err, serialport.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for empty path, got %v", err)
	}
	bad := serialport.DefaultConfig()
	bad.DataBits = 9
	if err := b.Open(ctx, "/dev/ROBOT", bad); !errors.Is(err, serialport.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	if err := b.Open(ctx, "/dev/ROBOT", serialport.DefaultConfig()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := b.Open(ctx, "/dev/ROBOT", serialport.DefaultConfig()); !errors.Is(err, serialport.ErrAlreadyOpen) {
		t.Errorf("Expected ErrAlreadyOpen, got %v", err)
	}

	other := reg.NewBinding()
	if err := other.Open(ctx, "/dev/ROBOT", serialport.DefaultConfig()); !errors.Is(err, serialport.ErrDeviceInUse) {
		t.Errorf("Expected ErrDeviceInUse for a locked port, got %v", err)
	}

	b.Close()
	if err := other.Open(ctx, "/dev/ROBOT", serialport.DefaultConfig()); err != nil {
		t.Errorf("Open after the holder closed failed: %v", err)
	}
	other.Close()
}

func TestUnlockedPortIsShared(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	ctx := context.Background()
	unlocked, _ := serialport.NewConfig(serialport.WithLock(false))

	a := reg.NewBinding()
	if err := a.Open(ctx, "/dev/ROBOT", unlocked); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()
	b := reg.NewBinding()
	if err := b.Open(ctx, "/dev/ROBOT", serialport.DefaultConfig()); err != nil {
		t.Errorf("Second open of an unlocked port failed: %v", err)
	}
	defer b.Close()
}

func TestClosedBindingOperations(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/ROBOT", PortOptions{})
	b := reg.NewBinding()
	ctx := context.Background()

	ops := map[string]func() error{
		"close":       b.Close,
		"read":        func() error { _, err := b.Read(ctx, make([]byte, 1)); return err },
		"write":       func() error { return b.Write(ctx, []byte("x")) },
		"update":      func() error { return b.Update(ctx, serialport.UpdateOptions{BaudRate: 9600}) },
		"set":         func() error { return b.Set(ctx, serialport.ControlLines{RTS: serialport.Line(true)}) },
		"get":         func() error { _, err := b.Get(ctx); return err },
		"getBaudRate": func() error { _, err := b.GetBaudRate(ctx); return err },
		"flush":       func() error { return b.Flush(ctx) },
		"drain":       func() error { return b.Drain(ctx) },
		"emit":        func() error { return b.EmitData([]byte("x")) },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, serialport.ErrNotOpen) {
			t.Errorf("%s on closed binding: expected ErrNotOpen, got %v", name, err)
		}
	}

	if err := b.Open(ctx, "/dev/ROBOT", serialport.DefaultConfig()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Close(); !errors.Is(err, serialport.ErrNotOpen) {
		t.Errorf("Second close: expected ErrNotOpen, got %v", err)
	}
}

func TestRegistryListAndReset(t *testing.T) {
	reg := NewRegistry()
	reg.CreatePort("/dev/B", PortOptions{VendorID: "0403", ProductID: "6001", Manufacturer: "FTDI"})
	reg.CreatePort("/dev/A", PortOptions{SerialNumber: "XYZ"})

	ports, err := reg.NewBinding().List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ports) != 2 {
		t.Fatalf("Expected 2 ports, got %d", len(ports))
	}
	if ports[0].Path != "/dev/A" || ports[1].Path != "/dev/B" {
		t.Errorf("Expected sorted paths, got %s, %s", ports[0].Path, ports[1].Path)
	}
	if ports[0].SerialNumber != "XYZ" {
		t.Errorf("Expected explicit serial XYZ, got %q", ports[0].SerialNumber)
	}
	if ports[1].SerialNumber != "1" {
		t.Errorf("Expected counter serial 1, got %q", ports[1].SerialNumber)
	}
	if ports[1].VendorID != "0403" || ports[1].Manufacturer != "FTDI" {
		t.Errorf("Metadata not listed: %+v", ports[1])
	}

	reg.Reset()
	ports, _ = reg.List(context.Background())
	if len(ports) != 0 {
		t.Errorf("Expected no ports after Reset, got %d", len(ports))
	}
	reg.CreatePort("/dev/C", PortOptions{})
	ports, _ = reg.List(context.Background())
	if ports[0].SerialNumber != "1" {
		t.Errorf("Expected numbering to restart after Reset, got %q", ports[0].SerialNumber)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	first := NewRegistry()
	second := NewRegistry()
	first.CreatePort("/dev/ROBOT", PortOptions{})

	b := second.NewBinding()
	if err := b.Open(context.Background(), "/dev/ROBOT", serialport.DefaultConfig()); !errors.Is(err, serialport.ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound in a separate registry, got %v", err)
	}
}

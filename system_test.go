package serialport

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
)

// openPTY returns the master side of a pseudo terminal and the path of its
// slave, which the system binding opens like any other tty
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	t.Cleanup(func() {
		master.Close()
		slave.Close()
	})
	return master, slave.Name()
}

func openSystemBinding(t *testing.T, path string) *SystemBinding {
	t.Helper()
	b := NewSystemBinding(zerolog.Nop())
	if err := b.Open(context.Background(), path, DefaultConfig()); err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	t.Cleanup(func() {
		if b.IsOpen() {
			b.Close()
		}
	})
	return b
}

func TestSystemBindingRoundTrip(t *testing.T) {
	master, path := openPTY(t)
	b := openSystemBinding(t, path)

	if _, err := master.Write([]byte("ping")); err != nil {
		t.Fatalf("master write failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []byte
	buf := make([]byte, 16)
	for len(got) < 4 {
		n, err := b.Read(ctx, buf)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if n == 0 {
			t.Fatal("Read returned 0 bytes without error")
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "ping" {
		t.Errorf("Expected ping, got %q", got)
	}

	if err := b.Write(ctx, []byte("pong")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := b.Drain(ctx); err != nil {
		t.Errorf("Drain failed: %v", err)
	}

	reply := make([]byte, 4)
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(master, reply)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("master read failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for pong on the master side")
	}
	if string(reply) != "pong" {
		t.Errorf("Expected pong, got %q", reply)
	}
}

func TestSystemBindingCloseCancelsRead(t *testing.T) {
	_, path := openPTY(t)
	b := openSystemBinding(t, path)

	result := make(chan error, 1)
	go func() {
		_, err := b.Read(context.Background(), make([]byte, 8))
		result <- err
	}()

	// Let the read park in the poller
	time.Sleep(50 * time.Millisecond)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-result:
		if !IsCanceled(err) {
			t.Errorf("Expected canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not settle after Close")
	}
}

func TestSystemBindingReadContextCancel(t *testing.T) {
	_, path := openPTY(t)
	b := openSystemBinding(t, path)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := b.Read(ctx, make([]byte, 8)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}

	// The port stays usable after a canceled wait
	if !b.IsOpen() {
		t.Error("Binding closed by a canceled read")
	}
	if err := b.Write(context.Background(), []byte("ok")); err != nil {
		t.Errorf("Write after canceled read failed: %v", err)
	}
}

func TestSystemBindingHangupIsDisconnect(t *testing.T) {
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	path := slave.Name()
	b := openSystemBinding(t, path)
	slave.Close()

	result := make(chan error, 1)
	go func() {
		_, err := b.Read(context.Background(), make([]byte, 8))
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	master.Close()

	select {
	case err := <-result:
		if !IsDisconnect(err) {
			t.Errorf("Expected disconnect, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not notice the hangup")
	}
}

func TestSystemBindingLifecycleErrors(t *testing.T) {
	_, path := openPTY(t)
	b := NewSystemBinding(zerolog.Nop())
	ctx := context.Background()

	if err := b.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Close on unopened binding: expected ErrNotOpen, got %v", err)
	}

	if err := b.Open(ctx, path, DefaultConfig()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := b.Open(ctx, path, DefaultConfig()); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("Expected ErrAlreadyOpen, got %v", err)
	}
	if _, err := b.Read(ctx, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for empty buffer, got %v", err)
	}
	if err := b.Update(ctx, UpdateOptions{BaudRate: 0}); !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Second Close: expected ErrNotOpen, got %v", err)
	}

	closedOps := map[string]func() error{
		"read":        func() error { _, err := b.Read(ctx, make([]byte, 1)); return err },
		"write":       func() error { return b.Write(ctx, []byte("x")) },
		"update":      func() error { return b.Update(ctx, UpdateOptions{BaudRate: 9600}) },
		"set":         func() error { return b.Set(ctx, ControlLines{RTS: Line(true)}) },
		"get":         func() error { _, err := b.Get(ctx); return err },
		"getBaudRate": func() error { _, err := b.GetBaudRate(ctx); return err },
		"flush":       func() error { return b.Flush(ctx) },
		"drain":       func() error { return b.Drain(ctx) },
	}
	for name, op := range closedOps {
		if err := op(); !errors.Is(err, ErrNotOpen) {
			t.Errorf("%s on closed binding: expected ErrNotOpen, got %v", name, err)
		}
	}

	// Reopen works after close
	if err := b.Open(ctx, path, DefaultConfig()); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	b.Close()
}

func TestSystemBindingUpdateBaudRate(t *testing.T) {
	_, path := openPTY(t)
	b := openSystemBinding(t, path)
	ctx := context.Background()

	rate, err := b.GetBaudRate(ctx)
	if err != nil {
		t.Fatalf("GetBaudRate failed: %v", err)
	}
	if rate != 115200 {
		t.Errorf("Expected 115200 after open, got %d", rate)
	}

	if err := b.Update(ctx, UpdateOptions{BaudRate: 9600}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	rate, err = b.GetBaudRate(ctx)
	if err != nil {
		t.Fatalf("GetBaudRate failed: %v", err)
	}
	if rate != 9600 {
		t.Errorf("Expected 9600 after update, got %d", rate)
	}

	if err := b.Flush(ctx); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
}

func TestSystemBindingLock(t *testing.T) {
	_, path := openPTY(t)
	openSystemBinding(t, path)

	second := NewSystemBinding(zerolog.Nop())
	err := second.Open(context.Background(), path, DefaultConfig())
	if !errors.Is(err, ErrDeviceInUse) {
		t.Errorf("Expected ErrDeviceInUse, got %v", err)
	}
	if second.IsOpen() {
		t.Error("Binding reports open after losing the lock")
	}
}

func TestSystemBindingOpenMissingDevice(t *testing.T) {
	b := NewSystemBinding(zerolog.Nop())
	err := b.Open(context.Background(), "/dev/nonexistent-serial", DefaultConfig())
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
	if b.IsOpen() {
		t.Error("Binding reports open after a failed Open")
	}
}

func TestPortOverSystemBinding(t *testing.T) {
	master, path := openPTY(t)
	port := NewPort(NewSystemBinding(zerolog.Nop()), path, DefaultConfig())
	if err := port.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := master.Write([]byte("hi")); err != nil {
		t.Fatalf("master write failed: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(port, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if string(buf) != "hi" {
		t.Errorf("Expected hi, got %q", buf)
	}

	result := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 4))
		result <- err
	}()
	time.Sleep(50 * time.Millisecond)
	if err := port.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-result:
		if err != io.EOF {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not settle after Close")
	}
}

func TestFDFileHungUp(t *testing.T) {
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	b := openSystemBinding(t, slave.Name())
	slave.Close()

	f := b.current().file
	if f.HungUp() {
		t.Fatal("Expected no hangup while the master is open")
	}
	master.Close()
	if !f.HungUp() {
		t.Error("Expected hangup after the master closed")
	}
}

func TestBlockingCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := func() error {
		<-release
		return nil
	}

	closing := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- blockingCall(context.Background(), closing, stuck) }()
	close(closing)
	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("Expected ErrCanceled after close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stuck call was not released by close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := blockingCall(ctx, make(chan struct{}), stuck); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}

	boom := errors.New("boom")
	if err := blockingCall(context.Background(), make(chan struct{}), func() error { return boom }); err != boom {
		t.Errorf("Expected the call's own error, got %v", err)
	}
}

func TestSystemBindingDrainAfterClose(t *testing.T) {
	_, path := openPTY(t)
	b := openSystemBinding(t, path)
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	b.Close()
	if err := b.Drain(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
}

package serialmock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allbin/serialport"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ports.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestLoadFixtures(t *testing.T) {
	path := writeFixture(t, `
[[port]]
path = "/dev/ROBOT"
echo = true
ready_data = "READY"
manufacturer = "Acme"
vendor_id = "0403"
product_id = "6001"
serial_number = "R2D2"
write_latency = "1ms"
status = { cts = true, dsr = true }

[[port]]
path = "/dev/GPS"
record = true
max_read_size = 16
`)

	reg := NewRegistry()
	paths, err := LoadFixtures(reg, path)
	if err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/dev/ROBOT" || paths[1] != "/dev/GPS" {
		t.Errorf("Expected ROBOT and GPS in file order, got %v", paths)
	}

	ports, _ := reg.List(context.Background())
	if len(ports) != 2 {
		t.Fatalf("Expected 2 ports, got %d", len(ports))
	}
	robot := ports[1]
	if robot.SerialNumber != "R2D2" || robot.VendorID != "0403" || robot.Manufacturer != "Acme" {
		t.Errorf("Robot metadata not loaded: %+v", robot)
	}

	b := reg.NewBinding()
	if err := b.Open(context.Background(), "/dev/ROBOT", serialport.DefaultConfig()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	buf := make([]byte, 8)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := b.Read(ctx, buf)
	if err != nil || string(buf[:n]) != "READY" {
		t.Errorf("Expected READY from fixture port, got %q, %v", buf[:n], err)
	}

	status, _ := b.Get(ctx)
	if status != (serialport.RemoteStatus{CTS: true, DSR: true}) {
		t.Errorf("Expected fixture status, got %+v", status)
	}
}

func TestLoadFixturesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing path", "[[port]]\necho = true\n"},
		{"bad latency", "[[port]]\npath = \"/dev/X\"\nwrite_latency = \"soon\"\n"},
		{"unknown key", "[[port]]\npath = \"/dev/X\"\nbaud = 9600\n"},
		{"invalid toml", "[[port]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			if _, err := LoadFixtures(reg, writeFixture(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
			if ports, _ := reg.List(context.Background()); len(ports) != 0 {
				t.Errorf("Failed load registered %d ports", len(ports))
			}
		})
	}

	if _, err := LoadFixtures(NewRegistry(), filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

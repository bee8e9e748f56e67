// Package serialmock is an in-memory serialport.Binding for tests. It
// reports the same error classes as the system binding for every state
// transition, so code tested against it behaves the same on hardware.
//
// Ports live in a Registry that a test creates and resets itself:
//
//	reg := serialmock.NewRegistry()
//	reg.CreatePort("/dev/ROBOT", serialmock.PortOptions{Echo: true, ReadyData: []byte("READY")})
//	port := serialport.NewPort(reg.NewBinding(), "/dev/ROBOT", serialport.DefaultConfig())
package serialmock

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/allbin/serialport"
)

const defaultMaxReadSize = 1024

// PortOptions describes a simulated port
type PortOptions struct {
	// Echo feeds every write back into the read queue
	Echo bool
	// Record keeps a copy of every write, see Registry.Recording
	Record bool
	// ReadyData is emitted right after open when Echo is set
	ReadyData []byte

	Manufacturer string
	VendorID     string
	ProductID    string
	// SerialNumber defaults to a registry-wide counter
	SerialNumber string

	// MaxReadSize caps the bytes returned by one read, default 1024
	MaxReadSize int
	// Status is what Get reports, whatever Set was called with
	Status *serialport.RemoteStatus
	// WriteLatency delays write completion, leaving room to close mid-write
	WriteLatency time.Duration
}

// mockPort is the state of one simulated device, shared by every binding
// that opens it
type mockPort struct {
	path    string
	opts    PortOptions
	serial  string
	status  serialport.RemoteStatus
	data    []byte
	openCfg *serialport.Config // config of the binding holding it open

	lastWrite []byte
	recording []byte
}

// Registry holds the simulated ports. The zero value is not usable, call
// NewRegistry.
type Registry struct {
	mu      sync.Mutex
	ports   map[string]*mockPort
	counter int
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{ports: make(map[string]*mockPort)}
}

// CreatePort registers a simulated port at path, replacing any previous one
func (r *Registry) CreatePort(path string, opts PortOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter++
	serial := opts.SerialNumber
	if serial == "" {
		serial = strconv.Itoa(r.counter)
	}
	if opts.MaxReadSize <= 0 {
		opts.MaxReadSize = defaultMaxReadSize
	}
	status := serialport.RemoteStatus{CTS: true}
	if opts.Status != nil {
		status = *opts.Status
	}
	r.ports[path] = &mockPort{
		path:   path,
		opts:   opts,
		serial: serial,
		status: status,
	}
}

// Reset removes every port and restarts serial numbering
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ports = make(map[string]*mockPort)
	r.counter = 0
}

// List returns the registered ports sorted by path
func (r *Registry) List(ctx context.Context) ([]serialport.PortDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ports := make([]serialport.PortDescriptor, 0, len(r.ports))
	for _, port := range r.ports {
		ports = append(ports, serialport.PortDescriptor{
			Path:         port.path,
			Name:         port.path,
			Description:  "Mock Serial Port",
			Manufacturer: port.opts.Manufacturer,
			SerialNumber: port.serial,
			VendorID:     port.opts.VendorID,
			ProductID:    port.opts.ProductID,
			LocationID:   port.path,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
	return ports, nil
}

// NewBinding returns a closed binding backed by this registry
func (r *Registry) NewBinding() *Binding {
	return &Binding{registry: r}
}

// LastWrite returns a copy of the last completed write to path
func (r *Registry) LastWrite(path string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if port, ok := r.ports[path]; ok {
		return clone(port.lastWrite)
	}
	return nil
}

// Recording returns everything written to path while Record was set
func (r *Registry) Recording(path string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if port, ok := r.ports[path]; ok {
		return clone(port.recording)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

package serialmock

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/allbin/serialport"
)

// fixtureFile is the TOML layout read by LoadFixtures:
//
//	[[port]]
//	path = "/dev/ROBOT"
//	echo = true
//	ready_data = "READY"
//	vendor_id = "0403"
//	write_latency = "5ms"
//	status = { cts = true, dsr = true }
type fixtureFile struct {
	Ports []fixturePort `toml:"port"`
}

type fixturePort struct {
	Path         string         `toml:"path"`
	Echo         bool           `toml:"echo"`
	Record       bool           `toml:"record"`
	ReadyData    string         `toml:"ready_data"`
	Manufacturer string         `toml:"manufacturer"`
	VendorID     string         `toml:"vendor_id"`
	ProductID    string         `toml:"product_id"`
	SerialNumber string         `toml:"serial_number"`
	MaxReadSize  int            `toml:"max_read_size"`
	WriteLatency string         `toml:"write_latency"`
	Status       *fixtureStatus `toml:"status"`
}

type fixtureStatus struct {
	CTS bool `toml:"cts"`
	DSR bool `toml:"dsr"`
	DCD bool `toml:"dcd"`
}

// LoadFixtures registers every port described in the TOML file at path and
// returns the registered paths in file order
func LoadFixtures(reg *Registry, path string) ([]string, error) {
	var raw fixtureFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load mock fixtures: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load mock fixtures: unknown key %q", undecoded[0].String())
	}

	opts := make([]PortOptions, len(raw.Ports))
	paths := make([]string, len(raw.Ports))
	for i, fp := range raw.Ports {
		p := strings.TrimSpace(fp.Path)
		if p == "" {
			return nil, fmt.Errorf("load mock fixtures: port %d: %w: path is required", i, serialport.ErrInvalidArgument)
		}

		o := PortOptions{
			Echo:         fp.Echo,
			Record:       fp.Record,
			Manufacturer: fp.Manufacturer,
			VendorID:     fp.VendorID,
			ProductID:    fp.ProductID,
			SerialNumber: fp.SerialNumber,
			MaxReadSize:  fp.MaxReadSize,
		}
		if fp.ReadyData != "" {
			o.ReadyData = []byte(fp.ReadyData)
		}
		if fp.WriteLatency != "" {
			d, err := time.ParseDuration(strings.TrimSpace(fp.WriteLatency))
			if err != nil {
				return nil, fmt.Errorf("load mock fixtures: port %s: parse write_latency: %w", p, err)
			}
			o.WriteLatency = d
		}
		if fp.Status != nil {
			o.Status = &serialport.RemoteStatus{CTS: fp.Status.CTS, DSR: fp.Status.DSR, DCD: fp.Status.DCD}
		}
		opts[i] = o
		paths[i] = p
	}

	for i, p := range paths {
		reg.CreatePort(p, opts[i])
	}
	return paths, nil
}

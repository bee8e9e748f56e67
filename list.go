package serialport

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Locations scanned by ListPorts, variables so tests can point them at a
// fake tree
var (
	devDir    = "/dev"
	sysfsRoot = "/sys"
)

// Regular expressions for different types of serial devices
var portPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// lookupLimit bounds concurrent sysfs lookups during ListPorts
const lookupLimit = 8

// ListPorts returns the serial ports present on the system, sorted by path.
// A port whose metadata cannot be read is still listed with its path; only
// failing to read the device directory itself is an error.
func ListPorts(ctx context.Context) ([]PortDescriptor, error) {
	paths, err := scanDevices(devDir)
	if err != nil {
		return nil, err
	}

	ports := make([]PortDescriptor, len(paths))
	// The group only bounds parallelism. describePort records lookup failures
	// on the descriptor, so ctx cancellation is the one error that reaches Wait.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i, path := range paths {
		ports[i] = PortDescriptor{Path: path}
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			describePort(&ports[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ports, nil
}

// scanDevices returns the character devices in dir matching portPatterns
func scanDevices(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if !matchesPortPattern(entry.Name()) {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		// Verify it's a character device (not a directory or regular file)
		if isCharacterDevice(fullPath) {
			paths = append(paths, fullPath)
		}
	}

	// Sort the ports for consistent ordering
	sort.Strings(paths)
	return paths, nil
}

func matchesPortPattern(name string) bool {
	for _, pattern := range portPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// GetPortInfo returns the descriptor of a single port
func GetPortInfo(portPath string) (*PortDescriptor, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}
	desc := &PortDescriptor{Path: portPath}
	describePort(desc)
	return desc, nil
}

func describePort(desc *PortDescriptor) {
	desc.Name = filepath.Base(desc.Path)
	desc.Description = getPortDescription(desc.Name)
	if strings.HasPrefix(desc.Name, "ttyUSB") || strings.HasPrefix(desc.Name, "ttyACM") {
		enrichUSBInfo(desc)
	}
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo fills USB metadata from sysfs. The class/tty/<name>/device
// link resolves to the USB interface directory; its parent is the USB device
// holding idVendor, idProduct and friends. Missing files leave fields empty.
func enrichUSBInfo(desc *PortDescriptor) {
	link := filepath.Join(sysfsRoot, "class", "tty", desc.Name, "device")
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return
	}

	// ttyUSB devices have an extra ttyUSBn directory below the interface
	interfacePath := resolved
	if filepath.Base(resolved) == desc.Name {
		interfacePath = filepath.Dir(resolved)
	}
	desc.InterfaceNumber = readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber"))

	usbDevicePath := filepath.Dir(interfacePath)
	desc.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	desc.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	desc.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	desc.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	desc.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	desc.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	desc.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
	if desc.VendorID != "" {
		desc.LocationID = filepath.Base(usbDevicePath)
	}
}

// readSysfsFile returns the trimmed content of path, or "" on any error
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

package serialport

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// reenumerateDelay is how long a reset device typically needs to come back
var reenumerateDelay = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the device behind portPath.
// It needs the usbreset utility (usbutils) and usually root.
//
// Returns ErrUSBInfoNotAvailable when the port is not a USB device and
// ErrUSBResetNotAvailable when usbreset is missing.
func ResetUSBDevice(ctx context.Context, portPath string) error {
	desc, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}
	return resetDescriptor(ctx, *desc)
}

// ResetUSBDeviceBySerial resets the USB device with the given serial number.
// Serial numbers survive re-enumeration, paths may not.
func ResetUSBDeviceBySerial(ctx context.Context, serialNumber string) error {
	ports, err := ListPorts(ctx)
	if err != nil {
		return err
	}
	for _, desc := range ports {
		if desc.SerialNumber == serialNumber {
			return resetDescriptor(ctx, desc)
		}
	}
	return fmt.Errorf("%w: no device with serial %s", ErrDeviceNotFound, serialNumber)
}

func resetDescriptor(ctx context.Context, desc PortDescriptor) error {
	if desc.BusNumber == "" || desc.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}
	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	cmd := exec.CommandContext(ctx, "usbreset", usbPath(desc.BusNumber, desc.DeviceNumber))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	select {
	case <-time.After(reenumerateDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// usbPath formats bus and device numbers the way usbreset expects (BBB/DDD)
func usbPath(bus, device string) string {
	return padZero(bus, 3) + "/" + padZero(device, 3)
}

func padZero(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/allbin/serialport"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialport info /dev/ttyUSB0
  serialport info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := describe(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting port info: %w", err)
		}
		printInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// describe looks the path up in the binding's listing, falling back to a
// direct sysfs lookup for devices the scan patterns skip
func describe(ctx context.Context, path string) (*serialport.PortDescriptor, error) {
	binding, err := newBinding()
	if err != nil {
		return nil, err
	}
	ports, err := binding.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range ports {
		if ports[i].Path == path {
			return &ports[i], nil
		}
	}
	if _, system := binding.(*serialport.SystemBinding); !system {
		return nil, &serialport.OpError{Op: "info", Path: path, Err: serialport.ErrDeviceNotFound}
	}
	return serialport.GetPortInfo(path)
}

func printInfo(out io.Writer, info *serialport.PortDescriptor) {
	fmt.Fprintf(out, "Port Information: %s\n\n", info.Path)
	fmt.Fprintf(out, "  Name:        %s\n", info.Name)
	fmt.Fprintf(out, "  Description: %s\n", info.Description)

	if info.VendorID == "" && info.ProductID == "" {
		return
	}
	fmt.Fprintln(out, "\nUSB Device Information:")
	for _, field := range []struct{ label, value string }{
		{"Vendor ID", info.VendorID},
		{"Product ID", info.ProductID},
		{"Serial", info.SerialNumber},
		{"Interface", info.InterfaceNumber},
		{"Bus", info.BusNumber},
		{"Device", info.DeviceNumber},
		{"Location", info.LocationID},
		{"Manufacturer", info.Manufacturer},
		{"Product", info.Product},
	} {
		if field.value != "" {
			fmt.Fprintf(out, "  %-13s %s\n", field.label+":", field.value)
		}
	}
}

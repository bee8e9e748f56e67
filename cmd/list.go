/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/internal/tui/models"
	"github.com/allbin/serialport/internal/tui/styles"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

USB devices are shown with vendor, product and serial number read from sysfs.
With --interactive the ports are shown in a filterable table and the selected
path is printed on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		interactive, _ := cmd.Flags().GetBool("interactive")

		binding, err := newBinding()
		if err != nil {
			return err
		}

		if interactive {
			m := models.NewPortsModel(cmd.Context(), binding)
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				return err
			}
			if m.Selected() != "" {
				fmt.Fprintln(cmd.OutOrStdout(), m.Selected())
			}
			return nil
		}

		ports, err := binding.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}
		ports = filterPorts(ports, filterType)

		out := cmd.OutOrStdout()
		if len(ports) == 0 {
			if filterType != "" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if tableFormat {
			renderTable(out, ports)
		} else {
			renderSimple(out, ports)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().BoolP("interactive", "i", false, "Pick a port from an interactive table")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serialport.PortDescriptor, filterType string) []serialport.PortDescriptor {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []serialport.PortDescriptor
	for _, port := range ports {
		name := strings.ToLower(port.Name)
		var keep bool
		switch filterType {
		case "usb":
			keep = strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") || port.VendorID != ""
		case "standard":
			keep = strings.HasPrefix(name, "ttys")
		case "arm":
			keep = strings.HasPrefix(name, "ttyama")
		}
		if keep {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

// renderTable renders the port list in a styled static table format
func renderTable(out io.Writer, ports []serialport.PortDescriptor) {
	fmt.Fprintf(out, "Found %d serial port(s):\n\n", len(ports))

	headerStyle := styles.TableHeaderStyle.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(styles.TableBorderColor)
	cellStyle := lipgloss.NewStyle().PaddingRight(2)

	const row = "%-16s %-16s %-28s %-10s %s"
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf(row, "Port", "Type", "Description", "VID:PID", "Serial")))
	for _, p := range ports {
		vidpid := "-"
		if p.VendorID != "" {
			vidpid = p.VendorID + ":" + p.ProductID
		}
		serial := p.SerialNumber
		if serial == "" {
			serial = "-"
		}
		fmt.Fprintln(out, cellStyle.Render(fmt.Sprintf(row,
			p.Path, getPortType(p.Name), truncate(p.Description, 28), vidpid, serial)))
	}
}

// renderSimple renders the port list in simple text format
func renderSimple(out io.Writer, ports []serialport.PortDescriptor) {
	for _, p := range ports {
		fmt.Fprintln(out, p.Path)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/serialport/internal/tui/components"
	"github.com/allbin/serialport/internal/tui/models"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Open a serial port in a terminal UI that shows traffic as it arrives.

Features include:
- Real-time RX/TX log with timestamps
- Hex and ASCII display modes, toggled with h and a
- Insert mode (i) for sending ASCII or hex lines, with history
- RTS/DTR toggles (r, d) and live CTS/DSR/DCD indicators

Example usage:
  serialport listen /dev/ttyUSB0
  serialport listen /dev/ttyUSB0 --baud 9600 --hex-input
  serialport --mock-fixtures ports.toml listen /dev/ROBOT`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noHex, _ := cmd.Flags().GetBool("no-hex")
		noASCII, _ := cmd.Flags().GetBool("no-ascii")
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		hexInput, _ := cmd.Flags().GetBool("hex-input")
		crlf, _ := cmd.Flags().GetBool("crlf")

		port, err := newPort(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		sending := components.SendingModeASCII
		if hexInput {
			sending = components.SendingModeHex
		}
		m := models.NewListenModel(ctx, port, models.ListenOptions{
			Display: components.DisplayMode{
				ShowHex:   !noHex,
				ShowASCII: !noASCII,
				ShowTime:  !noTimestamps,
			},
			SendingMode: sending,
			AppendCRLF:  crlf,
			Logger:      logger,
		})

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
		_, err = p.Run()
		if port.IsOpen() {
			port.Close()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-hex", false, "Start with the hex column hidden")
	listenCmd.Flags().Bool("no-ascii", false, "Start with the ASCII column hidden")
	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("hex-input", false, "Start the input line in hex mode")
	listenCmd.Flags().Bool("crlf", false, "Append CRLF to ASCII lines sent from the input")
}
